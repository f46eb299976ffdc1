// Package secretstore resolves and creates secrets in Google Secret Manager.
package secretstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rundemo/rundemo/pkg/failure"
	"github.com/rundemo/rundemo/pkg/models"
)

// LatestVersion is the version label every read resolves.
const LatestVersion = "latest"

// Config selects the project and how to reach the store.
type Config struct {
	Project         string
	CredentialsFile string
	Endpoint        string
}

// client is the subset of the Secret Manager client the gateway calls.
type client interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
	Close() error
}

type dialFunc func(ctx context.Context) (client, error)

// errorTable classifies errors that carry no usable gRPC status.
var errorTable = failure.Table{
	{Substring: "Could not load the default credentials", Kind: failure.ErrAuthFailure},
	{Substring: "could not find default credentials", Kind: failure.ErrAuthFailure},
	{Substring: "PERMISSION_DENIED", Kind: failure.ErrPermissionDenied},
	{Substring: "already exists", Kind: failure.ErrConflict},
	{Substring: "not found", Kind: failure.ErrNotFound},
}

// noRetry disables the client library's default retry policy.
var noRetry = gax.WithRetry(func() gax.Retryer { return nil })

// Gateway talks to Secret Manager. The underlying client is created on first
// use; if creation fails the next call tries again.
type Gateway struct {
	cfg    Config
	dial   dialFunc
	logger zerolog.Logger

	mu     sync.Mutex
	client client
}

// New creates a Gateway for the given project.
func New(cfg Config, logger zerolog.Logger) *Gateway {
	g := &Gateway{cfg: cfg, logger: logger.With().Str("component", "secretstore").Logger()}
	g.dial = g.dialSecretManager
	return g
}

func newWithDialer(cfg Config, dial dialFunc) *Gateway {
	return &Gateway{cfg: cfg, dial: dial, logger: zerolog.Nop()}
}

func (g *Gateway) dialSecretManager(ctx context.Context) (client, error) {
	var opts []option.ClientOption
	switch {
	case g.cfg.Endpoint != "":
		opts = append(opts, option.WithEndpoint(g.cfg.Endpoint), option.WithoutAuthentication())
	case g.cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(g.cfg.CredentialsFile))
	}
	c, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (g *Gateway) getClient(ctx context.Context) (client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	c, err := g.dial(ctx)
	if err != nil {
		g.logger.Error().Err(err).Msg("failed to initialize secret manager client")
		return nil, failure.Wrap("secret manager client", failure.ErrUnavailable, err)
	}
	g.client = c
	return c, nil
}

// Project returns the configured project id.
func (g *Gateway) Project() string {
	return g.cfg.Project
}

// VersionName returns the resource name of a secret's latest version.
func VersionName(project, secret string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, secret, LatestVersion)
}

// Access reads the latest version of the named secret.
func (g *Gateway) Access(ctx context.Context, name string) (models.SecretVersion, error) {
	c, err := g.getClient(ctx)
	if err != nil {
		return models.SecretVersion{}, err
	}
	if g.cfg.Project == "" {
		return models.SecretVersion{}, failure.Wrap("access secret", failure.ErrUnconfigured, errors.New("project id not set"))
	}

	resp, err := c.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: VersionName(g.cfg.Project, name),
	}, noRetry)
	if err != nil {
		return models.SecretVersion{}, classify("access secret", err)
	}

	v := models.SecretVersion{Name: resp.GetName()}
	if i := strings.LastIndex(v.Name, "/"); i >= 0 {
		v.Version = v.Name[i+1:]
	}
	if p := resp.GetPayload(); p != nil {
		v.Payload = string(p.GetData())
	}
	return v, nil
}

// Create creates a secret with automatic replication and adds its first
// version holding value.
func (g *Gateway) Create(ctx context.Context, name, value string) (models.SecretCreated, error) {
	c, err := g.getClient(ctx)
	if err != nil {
		return models.SecretCreated{}, err
	}
	if g.cfg.Project == "" {
		return models.SecretCreated{}, failure.Wrap("create secret", failure.ErrUnconfigured, errors.New("project id not set"))
	}

	secret, err := c.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   "projects/" + g.cfg.Project,
		SecretId: name,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	}, noRetry)
	if err != nil {
		return models.SecretCreated{}, classify("create secret", err)
	}

	version, err := c.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  secret.GetName(),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, noRetry)
	if err != nil {
		return models.SecretCreated{}, classify("add secret version", err)
	}

	return models.SecretCreated{SecretName: secret.GetName(), VersionName: version.GetName()}, nil
}

// Close releases the client if one was created.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

func classify(op string, err error) error {
	var kind error
	switch status.Code(err) {
	case codes.NotFound:
		kind = failure.ErrNotFound
	case codes.PermissionDenied:
		kind = failure.ErrPermissionDenied
	case codes.AlreadyExists:
		kind = failure.ErrConflict
	case codes.Unauthenticated:
		kind = failure.ErrAuthFailure
	case codes.Unavailable:
		kind = failure.ErrUnavailable
	default:
		kind = errorTable.Match(err.Error())
	}
	return failure.Wrap(op, kind, err)
}
