package secretstore

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rundemo/rundemo/pkg/failure"
)

type fakeClient struct {
	secrets map[string]string

	accessErr error
	createErr error
	addErr    error

	lastAccess *secretmanagerpb.AccessSecretVersionRequest
	lastCreate *secretmanagerpb.CreateSecretRequest
	lastAdd    *secretmanagerpb.AddSecretVersionRequest
	closed     bool
}

func (f *fakeClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.lastAccess = req
	if f.accessErr != nil {
		return nil, f.accessErr
	}
	v, ok := f.secrets[req.GetName()]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "Secret [%s] not found or has no versions.", req.GetName())
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    "projects/123/secrets/demo/versions/7",
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(v)},
	}, nil
}

func (f *fakeClient) CreateSecret(_ context.Context, req *secretmanagerpb.CreateSecretRequest, _ ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	f.lastCreate = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &secretmanagerpb.Secret{Name: req.GetParent() + "/secrets/" + req.GetSecretId()}, nil
}

func (f *fakeClient) AddSecretVersion(_ context.Context, req *secretmanagerpb.AddSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.SecretVersion, error) {
	f.lastAdd = req
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &secretmanagerpb.SecretVersion{Name: req.GetParent() + "/versions/1"}, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func newTestGateway(project string, fc *fakeClient) *Gateway {
	return newWithDialer(Config{Project: project}, func(context.Context) (client, error) {
		return fc, nil
	})
}

func TestVersionName(t *testing.T) {
	assert.Equal(t, "projects/p1/secrets/demo/versions/latest", VersionName("p1", "demo"))
}

func TestAccess(t *testing.T) {
	fc := &fakeClient{secrets: map[string]string{
		"projects/p1/secrets/demo/versions/latest": "s3cret",
	}}
	g := newTestGateway("p1", fc)

	v, err := g.Access(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v.Payload)
	assert.Equal(t, "7", v.Version)
	assert.Equal(t, "projects/p1/secrets/demo/versions/latest", fc.lastAccess.GetName())
}

func TestAccessNotFound(t *testing.T) {
	g := newTestGateway("p1", &fakeClient{})

	_, err := g.Access(context.Background(), "missing")
	assert.ErrorIs(t, err, failure.ErrNotFound)
	assert.Contains(t, failure.Cause(err), "not found")
}

func TestAccessStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"permission", status.Error(codes.PermissionDenied, "Permission 'secretmanager.versions.access' denied"), failure.ErrPermissionDenied},
		{"unauthenticated", status.Error(codes.Unauthenticated, "request had invalid authentication credentials"), failure.ErrAuthFailure},
		{"unavailable", status.Error(codes.Unavailable, "connection refused"), failure.ErrUnavailable},
		{"text permission", errors.New("7 PERMISSION_DENIED: caller lacks access"), failure.ErrPermissionDenied},
		{"text credentials", errors.New("Could not load the default credentials"), failure.ErrAuthFailure},
		{"other", errors.New("deadline exceeded"), failure.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway("p1", &fakeClient{accessErr: tt.err})
			_, err := g.Access(context.Background(), "demo")
			require.Error(t, err)
			assert.Equal(t, tt.want, failure.Kind(err))
		})
	}
}

func TestAccessWithoutProject(t *testing.T) {
	fc := &fakeClient{}
	g := newTestGateway("", fc)

	_, err := g.Access(context.Background(), "demo")
	assert.ErrorIs(t, err, failure.ErrUnconfigured)
	assert.Nil(t, fc.lastAccess, "store must not be called without a project")
}

func TestClientInitFailureIsRetried(t *testing.T) {
	attempts := 0
	fc := &fakeClient{secrets: map[string]string{"projects/p1/secrets/demo/versions/latest": "v"}}
	g := newWithDialer(Config{Project: "p1"}, func(context.Context) (client, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("google: could not find default credentials")
		}
		return fc, nil
	})

	_, err := g.Access(context.Background(), "demo")
	assert.ErrorIs(t, err, failure.ErrUnavailable)

	v, err := g.Access(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, "v", v.Payload)
	assert.Equal(t, 2, attempts)
}

func TestCreate(t *testing.T) {
	fc := &fakeClient{}
	g := newTestGateway("p1", fc)

	created, err := g.Create(context.Background(), "demo", "value")
	require.NoError(t, err)
	assert.Equal(t, "projects/p1/secrets/demo", created.SecretName)
	assert.Equal(t, "projects/p1/secrets/demo/versions/1", created.VersionName)

	assert.Equal(t, "projects/p1", fc.lastCreate.GetParent())
	assert.NotNil(t, fc.lastCreate.GetSecret().GetReplication().GetAutomatic())
	assert.Equal(t, []byte("value"), fc.lastAdd.GetPayload().GetData())
}

func TestCreateConflict(t *testing.T) {
	fc := &fakeClient{createErr: status.Error(codes.AlreadyExists, "Secret [projects/1/secrets/demo] already exists.")}
	g := newTestGateway("p1", fc)

	_, err := g.Create(context.Background(), "demo", "value")
	assert.ErrorIs(t, err, failure.ErrConflict)
	assert.Nil(t, fc.lastAdd)
}

func TestClose(t *testing.T) {
	fc := &fakeClient{}
	g := newTestGateway("p1", fc)
	require.NoError(t, g.Close(), "close before first use")

	_, _ = g.Create(context.Background(), "demo", "value")
	require.NoError(t, g.Close())
	assert.True(t, fc.closed)
}
