package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcapi "github.com/lemonberrylabs/boolexpr/pkg/api/grpc"
)

func grpcClient(t *testing.T) *grpcapi.Client {
	t.Helper()
	if grpcAddr == "" {
		t.Skip("BOOLEXPR_GRPC_ENDPOINT not set")
	}
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err, "failed to connect to gRPC server")
	t.Cleanup(func() { conn.Close() })
	return grpcapi.NewClient(conn)
}

func grpcRequest(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	require.NoError(t, err, "building request")
	return req
}

func grpcContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGRPCEvaluate(t *testing.T) {
	client := grpcClient(t)

	resp, err := client.Evaluate(grpcContext(t), grpcRequest(t, map[string]any{
		"source": "A AND NOT B",
		"env":    map[string]any{"A": true, "B": false},
	}))
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["result"].GetBoolValue())
}

func TestGRPCErrors(t *testing.T) {
	client := grpcClient(t)

	_, err := client.Parse(grpcContext(t), grpcRequest(t, map[string]any{"source": "A AND"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "Parse")

	_, err = client.Evaluate(grpcContext(t), grpcRequest(t, map[string]any{"name": "no-such-expression"}))
	assert.Equal(t, codes.NotFound, status.Code(err), "Evaluate")

	_, err = client.Evaluate(grpcContext(t), grpcRequest(t, map[string]any{
		"source": "A",
		"env":    map[string]any{"A": nil},
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "Evaluate with null env value")
}

// TestGRPCSharesStoreWithHTTP evaluates a stored expression over both
// transports and checks both calls land in the same history.
func TestGRPCSharesStoreWithHTTP(t *testing.T) {
	client := grpcClient(t)
	name := createExpression(t, "shared", "admin OR (owner AND NOT locked)")

	env := map[string]any{"admin": false, "owner": true, "locked": false}
	resp, err := client.Evaluate(grpcContext(t), grpcRequest(t, map[string]any{"name": name, "env": env}))
	require.NoError(t, err)
	fields := resp.GetFields()
	assert.True(t, fields["result"].GetBoolValue())
	assert.Equal(t, name, fields["expression"].GetStringValue())

	code, body := postJSON(t, "expressions/"+name+"/evaluate", map[string]any{"env": env})
	require.Equal(t, http.StatusOK, code, "HTTP evaluate: %v", body)

	code, body = getJSON(t, "expressions/"+name+"/evaluations")
	require.Equal(t, http.StatusOK, code, "evaluations: %v", body)
	evals, _ := body["evaluations"].([]interface{})
	assert.Len(t, evals, 2)
}

func TestGRPCFormatDirectoryExpression(t *testing.T) {
	client := grpcClient(t)

	resp, err := client.Format(grpcContext(t), grpcRequest(t, map[string]any{
		"name":   "can-edit",
		"case":   "lower",
		"parens": "always",
	}))
	require.NoError(t, err)
	assert.Equal(t, "(admin or (owner and not locked))", resp.GetFields()["formatted"].GetStringValue())
}
