package checker

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestComputePoolSize(t *testing.T) {
	if got := ComputePoolSize(5); got != 1 {
		t.Errorf("below threshold: got %d, want 1", got)
	}
	if got := ComputePoolSize(30); got < 1 {
		t.Errorf("at threshold: got %d, want >= 1", got)
	}
}

func TestPartitionByIndex(t *testing.T) {
	files := []string{"a", "b", "c", "d", "e"}
	chunks := Partition(files, 2)
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total != len(files) {
		t.Fatalf("partition dropped files: got %d total, want %d", total, len(files))
	}
}

func TestDiagnosticDropped(t *testing.T) {
	d := Diagnostic{Code: float64(2307)}
	if !d.IsDropped() {
		t.Error("numeric 2307 should be dropped")
	}
	d2 := Diagnostic{Code: "TS2666"}
	if !d2.IsDropped() {
		t.Error("string TS2666 should be dropped")
	}
	d3 := Diagnostic{Code: float64(1234)}
	if d3.IsDropped() {
		t.Error("unrelated code should not be dropped")
	}
}

// pipeRWC adapts a pair of io.Pipe ends into one io.ReadWriteCloser.
type pipeRWC struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (p *pipeRWC) Close() error {
	for _, c := range p.closers {
		c.Close()
	}
	return nil
}

func newPipePair() (io.ReadWriteCloser, io.ReadWriteCloser) {
	ar, aw := io.Pipe()
	br, bw := io.Pipe()
	a := &pipeRWC{Reader: ar, Writer: bw, closers: []io.Closer{ar, aw, br, bw}}
	b := &pipeRWC{Reader: br, Writer: aw, closers: []io.Closer{}}
	return a, b
}

func TestFramedTransportRoundTrip(t *testing.T) {
	a, b := newPipePair()
	ta := NewFramedTransport(a)
	tb := NewFramedTransport(b)
	defer ta.Close()

	go tb.Send([]byte(`{"hello":"world"}`))

	body, err := ta.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(body) != `{"hello":"world"}` {
		t.Errorf("body = %s", body)
	}
}

func TestLineTransportRoundTrip(t *testing.T) {
	a, b := newPipePair()
	ta := NewLineTransport(a)
	tb := NewLineTransport(b)
	defer ta.Close()

	go tb.Send([]byte(`{"x":1}`))

	body, err := ta.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(body) != `{"x":1}` {
		t.Errorf("body = %s", body)
	}
}

// fakeTransport never answers, to exercise Client.Call's timeout path.
type fakeTransport struct {
	recvCh chan []byte
}

func (f *fakeTransport) Send([]byte) error   { return nil }
func (f *fakeTransport) Recv() ([]byte, error) {
	b, ok := <-f.recvCh
	if !ok {
		return nil, io.EOF
	}
	return b, nil
}
func (f *fakeTransport) Close() error { close(f.recvCh); return nil }

func TestClientCallTimesOut(t *testing.T) {
	ft := &fakeTransport{recvCh: make(chan []byte)}
	c := NewClient(ft, ClientOptions{Timeout: 20 * time.Millisecond})
	defer c.Close()

	_, err := c.Call(context.Background(), "textDocument/diagnostic", nil)
	rpcErr, ok := err.(*RPCError)
	if !ok || rpcErr.Code != ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestServeCheckRequest(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "check.sock")
	ctx, cancel := context.WithCancel(context.Background())

	engine := func(uri, content string) ([]Diagnostic, string, int, error) {
		return []Diagnostic{{Message: "unused variable", Severity: 2}}, "// virtual", 0, nil
	}

	ready := make(chan struct{})
	go func() {
		for {
			if _, err := dialWithTimeout(socketPath); err == nil {
				close(ready)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}()

	serveDone := make(chan struct{})
	go func() {
		Serve(ctx, socketPath, engine, nil)
		close(serveDone)
	}()
	defer func() {
		cancel()
		<-serveDone
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("server never became reachable")
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := map[string]any{
		"jsonrpc": "2.0", "id": 1, "method": "check",
		"params": map[string]string{"uri": "file:///a.vue", "content": "<template/>"},
	}
	body, _ := json.Marshal(req)
	conn.Write(append(body, '\n'))

	sc := bufio.NewScanner(conn)
	if !sc.Scan() {
		t.Fatalf("no response: %v", sc.Err())
	}
	var resp checkResponse
	if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Result == nil || resp.Result.VirtualTS != "// virtual" {
		t.Fatalf("resp = %+v", resp)
	}
}

func dialWithTimeout(path string) (net.Conn, error) {
	return net.DialTimeout("unix", path, 50*time.Millisecond)
}
