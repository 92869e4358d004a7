// Package integration exercises a running boolexpr server over real HTTP and
// gRPC connections.
//
// By default TestMain starts an in-process server on free loopback ports,
// preloaded from testdata/expressions. Set BOOLEXPR_URL (and
// BOOLEXPR_GRPC_ENDPOINT) to run the same tests against an external
// `boolexpr serve --expressions-dir test/integration/testdata/expressions`.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/boolexpr/pkg/api"
	grpcapi "github.com/lemonberrylabs/boolexpr/pkg/api/grpc"
	"github.com/lemonberrylabs/boolexpr/pkg/expr"
	"github.com/lemonberrylabs/boolexpr/pkg/store"
	"github.com/lemonberrylabs/boolexpr/web"
)

const expressionsDir = "testdata/expressions"

var (
	// testServer is the base URL of the HTTP server under test.
	testServer string
	// grpcAddr is the host:port of the gRPC server under test.
	grpcAddr string
)

func TestMain(m *testing.M) {
	testServer = os.Getenv("BOOLEXPR_URL")
	grpcAddr = os.Getenv("BOOLEXPR_GRPC_ENDPOINT")

	var stop func()
	if testServer == "" {
		var err error
		stop, err = startServer()
		if err != nil {
			fmt.Fprintf(os.Stderr, "starting server: %v\n", err)
			os.Exit(1)
		}
	}
	// Ensure the URL has a scheme.
	if !strings.HasPrefix(testServer, "http://") && !strings.HasPrefix(testServer, "https://") {
		testServer = "http://" + testServer
	}

	code := m.Run()
	if stop != nil {
		stop()
	}
	os.Exit(code)
}

// startServer runs the HTTP API, web UI and gRPC service the way `serve`
// wires them, on free ports.
func startServer() (func(), error) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	httpPort, err := freePort()
	if err != nil {
		return nil, err
	}
	grpcPort, err := freePort()
	if err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("127.0.0.1:%d", httpPort)
	grpcAddr = fmt.Sprintf("127.0.0.1:%d", grpcPort)
	testServer = "http://" + addr

	s := store.New()
	server := api.New(s, expr.PrintOptions{})
	if _, err := server.LoadDir(expressionsDir); err != nil {
		return nil, err
	}
	web.New(s, expr.PrintOptions{}).Register(server.App())
	grpcServer := grpcapi.New(s, expr.PrintOptions{})

	go server.Listen(addr)
	go grpcServer.Serve(grpcAddr)

	if err := waitReady(testServer+"/v1/expressions", 5*time.Second); err != nil {
		return nil, err
	}
	return func() {
		grpcServer.GracefulStop()
		_ = server.Shutdown()
	}, nil
}

func freePort() (int, error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port, nil
}

func waitReady(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not ready after %s", url, timeout)
}

// apiURL builds a full URL for the given API path.
func apiURL(path string) string {
	return strings.TrimRight(testServer, "/") + "/v1/" + path
}

// doJSON sends body (if non-nil) as JSON and decodes the JSON response.
func doJSON(t *testing.T, method, url string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err, "marshal request")
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err, "building request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "%s %s", method, url)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var result map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &result), "%s %s: decoding %q", method, url, raw)
	}
	return resp.StatusCode, result
}

func postJSON(t *testing.T, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	return doJSON(t, http.MethodPost, apiURL(path), body)
}

func getJSON(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()
	return doJSON(t, http.MethodGet, apiURL(path), nil)
}

// createExpression stores an expression under a name unique to the test and
// deletes it when the test ends.
func createExpression(t *testing.T, name, source string) string {
	t.Helper()
	name = fmt.Sprintf("%s-%d", name, time.Now().UnixNano())

	status, body := postJSON(t, "expressions?name="+name, map[string]interface{}{"source": source})
	require.Equal(t, http.StatusOK, status, "createExpression %s: %v", name, body)
	t.Cleanup(func() {
		doJSON(t, http.MethodDelete, apiURL("expressions/"+name), nil)
	})
	return name
}

// errorField returns a field of an {"error": {...}} body.
func errorField(body map[string]interface{}, field string) interface{} {
	e, _ := body["error"].(map[string]interface{})
	return e[field]
}
