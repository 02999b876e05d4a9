package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/morezero/operation-engine/pkg/authz"
	"github.com/morezero/operation-engine/pkg/operation"
	"github.com/morezero/operation-engine/pkg/registry"
	"github.com/morezero/operation-engine/pkg/resolver"
	"github.com/morezero/operation-engine/pkg/token"
)

var (
	folder = &operation.Content{ContentID: "1", Type: "Folder"}
	vault  = &operation.Content{ContentID: "2", Type: "Vault"}
	alice  = &operation.User{UserID: "alice", UserRoles: []string{"editors"}}
)

func entityParam() operation.Parameter {
	return operation.Parameter{Name: "content", Type: operation.Type{Kind: operation.KindEntity}}
}

func returning(v string) operation.Handler {
	return operation.Handler{Sync: func(context.Context, operation.Entity, []any) (any, error) { return v, nil }}
}

func fv1(kind operation.Kind, result string) operation.Declaration {
	return operation.Declaration{
		Name: "fv1",
		Parameters: []operation.Parameter{
			entityParam(),
			{Name: "a", Type: operation.Type{Kind: operation.KindString}},
			{Name: "x", Type: operation.Type{Kind: kind}, Optional: true},
		},
		Handler: returning(result),
	}
}

func newTestEngine(t *testing.T, decls ...operation.Declaration) *Engine {
	t.Helper()
	reg := registry.NewRegistry(registry.NewRegistryParams{
		Sources: []registry.Source{registry.Static(decls)},
		Config:  registry.DefaultConfig(),
	})
	if err := reg.Discover(context.Background()); err != nil {
		t.Fatalf("engine:engine_test - Discover failed: %v", err)
	}

	pipeline := authz.NewPipeline(authz.NewPipelineParams{
		Permissions: &authz.RoleGrants{Visibility: map[string][]string{"Vault": {"admins"}}},
	})
	return New(NewEngineParams{Catalog: reg, Pipeline: pipeline, Config: DefaultConfig()})
}

func request(op, body string) resolver.Request {
	return resolver.Request{Entity: folder, Operation: op, Body: token.MustParse(body), Identity: alice}
}

func TestCall_FV1(t *testing.T) {
	tests := []struct {
		name     string
		decls    []operation.Declaration
		body     string
		want     string
		wantCode string
	}{
		{name: "int wins numeric text", decls: []operation.Declaration{fv1(operation.KindInt, "int"), fv1(operation.KindString, "string")}, body: `{"a":"asdf","x":"42"}`, want: "int"},
		{name: "string wins boolean text", decls: []operation.Declaration{fv1(operation.KindInt, "int"), fv1(operation.KindString, "string")}, body: `{"a":"asdf","x":"true"}`, want: "string"},
		{name: "bool wins boolean text", decls: []operation.Declaration{fv1(operation.KindInt, "int"), fv1(operation.KindBool, "bool")}, body: `{"a":"asdf","x":"true"}`, want: "bool"},
		{name: "int wins over bool", decls: []operation.Declaration{fv1(operation.KindBool, "bool"), fv1(operation.KindInt, "int")}, body: `{"a":"asdf","x":"42"}`, want: "int"},
		{name: "no optional is ambiguous", decls: []operation.Declaration{fv1(operation.KindInt, "int"), fv1(operation.KindString, "string")}, body: `{"a":"asdf"}`, wantCode: operation.CodeAmbiguousMatch},
		{name: "missing required", decls: []operation.Declaration{fv1(operation.KindInt, "int")}, body: `{"x":1}`, wantCode: operation.CodeOperationNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, tt.decls...)
			got, err := e.Call(context.Background(), request("fv1", tt.body))
			if tt.wantCode != "" {
				if code := operation.CodeOf(err); code != tt.wantCode {
					t.Fatalf("engine:engine_test - code = %q (%v), want %q", code, err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("engine:engine_test - unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("engine:engine_test - result = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrepare_InvisibleEntity(t *testing.T) {
	e := newTestEngine(t, fv1(operation.KindInt, "int"))

	req := request("fv1", `{"a":"asdf"}`)
	req.Entity = vault
	_, err := e.Prepare(req)
	if code := operation.CodeOf(err); code != operation.CodeInvisible {
		t.Fatalf("engine:engine_test - code = %q, want INVISIBLE", code)
	}
	if !strings.Contains(err.Error(), "Operation not found") {
		t.Errorf("engine:engine_test - invisible message should read as not found, got %q", err.Error())
	}

	// unknown operations on an invisible entity do not reveal that the name is unknown
	req.Operation = "nosuch"
	if _, err := e.Prepare(req); operation.CodeOf(err) != operation.CodeInvisible {
		t.Errorf("engine:engine_test - unknown operation on invisible entity = %v", err)
	}
}

func TestPrepare_Policies(t *testing.T) {
	guarded := fv1(operation.KindInt, "int")
	guarded.Metadata.Policies = []string{"nosuch"}
	hidden := operation.Declaration{Name: "Hidden", Parameters: []operation.Parameter{entityParam()}, Handler: returning("x"), Metadata: operation.Metadata{Policies: []string{"hide"}}}

	e := newTestEngine(t, guarded, hidden)
	e.Pipeline().Policies().Register("hide", authz.PolicyFunc(func(operation.Identity, *operation.CallContext) authz.Verdict {
		return authz.Invisible
	}))

	_, err := e.Prepare(request("fv1", `{"a":"asdf"}`))
	var opErr *operation.Error
	if !errors.As(err, &opErr) || opErr.Code != operation.CodeForbidden {
		t.Fatalf("engine:engine_test - err = %v, want FORBIDDEN", err)
	}
	if !strings.Contains(opErr.Message, "Policy not found: nosuch") {
		t.Errorf("engine:engine_test - message = %q", opErr.Message)
	}

	if _, err := e.Prepare(request("Hidden", `{}`)); operation.CodeOf(err) != operation.CodeInvisible {
		t.Errorf("engine:engine_test - hidden policy err = %v, want INVISIBLE", err)
	}
}

func TestPrepare_NoIdentity(t *testing.T) {
	e := newTestEngine(t, fv1(operation.KindInt, "int"))
	req := request("fv1", `{"a":"asdf"}`)
	req.Identity = nil
	if _, err := e.Prepare(req); operation.CodeOf(err) != operation.CodeForbidden {
		t.Errorf("engine:engine_test - err = %v, want FORBIDDEN", err)
	}
}

func TestCall_Async(t *testing.T) {
	wait := operation.Declaration{
		Name:       "Wait",
		Parameters: []operation.Parameter{entityParam(), {Name: "ms", Type: operation.Type{Kind: operation.KindInt}}},
		Return:     operation.ReturnAsyncValue,
		Handler: operation.Handler{Async: func(ctx context.Context, _ operation.Entity, args []any) <-chan operation.Result {
			done := make(chan operation.Result, 1)
			go func() {
				select {
				case <-time.After(time.Duration(args[0].(int32)) * time.Millisecond):
					done <- operation.Result{Value: "waited"}
				case <-ctx.Done():
					done <- operation.Result{Err: ctx.Err()}
				}
			}()
			return done
		}},
	}
	e := newTestEngine(t, wait)

	got, err := e.Call(context.Background(), request("Wait", `{"ms":1}`))
	if err != nil || got != "waited" {
		t.Fatalf("engine:engine_test - Call() = %v, %v", got, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := e.Call(ctx, request("Wait", `{"ms":5000}`)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("engine:engine_test - err = %v, want deadline exceeded", err)
	}

	call, err := e.Prepare(request("Wait", `{"ms":1}`))
	if err != nil {
		t.Fatalf("engine:engine_test - Prepare failed: %v", err)
	}
	if _, err := e.Invoke(context.Background(), call); !errors.Is(err, operation.ErrWrongEntryPoint) {
		t.Errorf("engine:engine_test - sync entry point on async op = %v", err)
	}
}

func TestActions(t *testing.T) {
	e := newTestEngine(t,
		fv1(operation.KindInt, "int"),
		operation.Declaration{Name: "Ping", Parameters: []operation.Parameter{entityParam()}, Handler: returning("pong")},
	)

	got := e.Actions(folder, "", alice)
	if len(got) != 2 || got[0].Name != "Ping" || got[1].Name != "fv1" {
		t.Errorf("engine:engine_test - Actions() = %+v", got)
	}
	if got := e.Actions(vault, "", alice); len(got) != 0 {
		t.Errorf("engine:engine_test - invisible entity listed %d actions", len(got))
	}
}
