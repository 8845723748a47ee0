package checker

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"

	"go.uber.org/zap"
)

// Engine performs one check.check call: compile uri/content to
// diagnostics, the synthesized virtual-TS text, and an error count
// (spec §6, "CheckServer.check(uri, content)").
type Engine func(uri, content string) (diagnostics []Diagnostic, virtualTs string, errorCount int, err error)

type checkParams struct {
	URI     string `json:"uri"`
	Content string `json:"content"`
}

type checkRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      json.Number `json:"id"`
	Method  string      `json:"method"`
	Params  checkParams `json:"params"`
}

type checkResult struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	VirtualTS   string       `json:"virtualTs"`
	ErrorCount  int          `json:"errorCount"`
}

type checkResponse struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      json.Number  `json:"id"`
	Result  *checkResult `json:"result,omitempty"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Serve listens on a Unix-domain stream socket at socketPath and
// answers one "check" request per line (spec §6, "Socket protocol").
// It removes any stale socket file before binding and runs until ctx
// is cancelled.
func Serve(ctx context.Context, socketPath string, engine Engine, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	_ = os.Remove(socketPath)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", socketPath)
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Warn("checker: accept failed", zap.Error(err))
				continue
			}
		}
		go handleConn(conn, engine, logger)
	}
}

func handleConn(conn net.Conn, engine Engine, logger *zap.Logger) {
	defer conn.Close()
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	w := bufio.NewWriter(conn)

	for sc.Scan() {
		var req checkRequest
		if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
			logger.Warn("checker: malformed request", zap.Error(err))
			continue
		}
		if req.Method != "check" {
			writeError(w, req.ID, 1, "unknown method "+req.Method)
			continue
		}
		diags, vts, errCount, err := engine(req.Params.URI, req.Params.Content)
		if err != nil {
			writeError(w, req.ID, int(ErrResponse), err.Error())
			continue
		}
		resp := checkResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  &checkResult{Diagnostics: FilterDropped(diags), VirtualTS: vts, ErrorCount: errCount},
		}
		writeResponse(w, resp)
	}
}

func writeResponse(w *bufio.Writer, resp checkResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		return
	}
	w.Write(body)
	w.WriteByte('\n')
	w.Flush()
}

func writeError(w *bufio.Writer, id json.Number, code int, message string) {
	resp := checkResponse{JSONRPC: "2.0", ID: id}
	resp.Error = &struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}{Code: code, Message: message}
	writeResponse(w, resp)
}
