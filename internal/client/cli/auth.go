package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/godiscuss/godiscuss/internal/client/models"
)

// getSimpleText and getPassword are indirections used to facilitate
// testing. They point to interactive input helpers and can be swapped in
// tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for the server, database and credentials, authenticates
// and starts the live connection. Config values pre-fill the server and
// database prompts; entering nothing keeps them.
func (a *App) Login(ctx context.Context) error {
	serverURL := a.config.ServerURL
	if serverURL == "" {
		url, err := getSimpleText(a.reader, "Enter server URL", os.Stdout)
		if err != nil {
			return err
		}
		serverURL = url
	}

	database := a.config.Database
	if database == "" {
		db, err := getSimpleText(a.reader, "Enter database name", os.Stdout)
		if err != nil {
			return err
		}
		database = db
	}

	userName, err := getSimpleText(a.reader, "Enter login", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	session, err := a.gateway.Authenticate(ctx, models.Credentials{
		ServerURL: serverURL,
		Database:  database,
		Username:  userName,
		Password:  password,
	})
	if err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	a.userName = session.User.Name
	fmt.Printf("Logged in as %s\n", a.userName)
	a.startBridge(ctx, session.Token)
	return nil
}

// Logout ends the session, clears the vault and empties the local cache.
func (a *App) Logout(ctx context.Context) error {
	if a.stopBridge != nil {
		a.stopBridge()
		a.stopBridge = nil
	}
	if err := a.gateway.Logout(ctx); err != nil {
		log.Printf("Logout: %s", err.Error())
	}
	if err := a.cache.ClearAll(ctx); err != nil {
		log.Printf("Failed to clear cache: %s", err.Error())
	}
	a.userName = ""
	fmt.Println("Logged out.")
	return nil
}
