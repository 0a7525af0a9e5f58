package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/godiscuss/godiscuss/internal/common"
)

// rpcRequest is the fixed JSON-RPC 2.0 envelope the backend expects.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcErrorData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type rpcError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    rpcErrorData `json:"data"`
}

func (e *rpcError) Error() string {
	if e.Data.Message != "" {
		return e.Data.Message
	}
	return e.Message
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// callKWParams targets a model method through /web/dataset/call_kw.
type callKWParams struct {
	Model  string         `json:"model"`
	Method string         `json:"method"`
	Args   []any          `json:"args"`
	KWArgs map[string]any `json:"kwargs"`
}

// call posts a JSON-RPC envelope to path and decodes the result into out.
// Transport and backend failures are mapped onto the sentinel taxonomy; an
// authentication rejection tears the session down before returning.
func (g *Gateway) call(ctx context.Context, path string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: "call", Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL()+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.database != "" {
		req.Header.Set(common.HeaderDatabase, g.database)
	}
	if g.relayURL != "" {
		req.Header.Set(common.HeaderTargetURL, g.serverURL)
	}

	resp, err := g.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrServerUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		g.teardownSession(ctx)
		return common.ErrSessionExpired
	case resp.StatusCode == http.StatusForbidden:
		return common.ErrCorsRejected
	case resp.StatusCode == http.StatusNotFound:
		return common.ErrDatabaseNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: backend returned %s", common.ErrNetwork, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("%w: invalid backend response: %v", common.ErrNetwork, err)
	}
	if envelope.Error != nil {
		if strings.Contains(envelope.Error.Data.Name, "SessionExpired") {
			g.teardownSession(ctx)
			return common.ErrSessionExpired
		}
		return envelope.Error
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("%w: invalid backend result: %v", common.ErrNetwork, err)
		}
	}
	return nil
}

// callKW invokes model.method with positional args and keyword args.
func (g *Gateway) callKW(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	if !g.authenticated {
		return common.ErrNotAuthenticated
	}
	return g.call(ctx, "/web/dataset/call_kw", callKWParams{
		Model:  model,
		Method: method,
		Args:   args,
		KWArgs: kwargs,
	}, out)
}

// The backend encodes absent values as JSON false instead of null, for
// strings and integers alike. These wrappers decode either form.

type odooString string

func (s *odooString) UnmarshalJSON(b []byte) error {
	if string(b) == "false" || string(b) == "null" {
		*s = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = odooString(v)
	return nil
}

type odooInt int

func (i *odooInt) UnmarshalJSON(b []byte) error {
	if string(b) == "false" || string(b) == "null" {
		*i = 0
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*i = odooInt(v)
	return nil
}

// odooRef is the [id, display_name] pair many-to-one fields serialize to.
type odooRef struct {
	ID   int
	Name string
}

func (r *odooRef) UnmarshalJSON(b []byte) error {
	if string(b) == "false" || string(b) == "null" {
		*r = odooRef{}
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw[0], &r.ID); err != nil {
			return err
		}
	}
	if len(raw) > 1 {
		_ = json.Unmarshal(raw[1], &r.Name)
	}
	return nil
}

func itoa(v int) string { return strconv.Itoa(v) }
