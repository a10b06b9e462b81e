package backend

import (
	"context"
	"net/url"
	"testing"

	// Packages
	aws "github.com/aws/aws-sdk-go-v2/aws"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
	noop "go.opentelemetry.io/otel/trace/noop"
)

func TestWithEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		wantErr  bool
		want     string
	}{
		{name: "http endpoint", endpoint: "http://localhost:9000", want: "http://localhost:9000"},
		{name: "https endpoint", endpoint: "https://s3.example.com", want: "https://s3.example.com"},
		{name: "empty endpoint", endpoint: "", want: ""},
		{name: "invalid scheme", endpoint: "ftp://example.com", wantErr: true},
		{name: "invalid URL", endpoint: "://invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			u, err := url.Parse("s3://mybucket")
			require.NoError(err)

			o, err := apply(u, WithEndpoint(tt.endpoint))
			if tt.wantErr {
				assert.Error(err)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, o.endpoint)
		})
	}
}

func TestWithCreateDir(t *testing.T) {
	assert := assert.New(t)
	u, err := url.Parse("file:///tmp/data")
	require.NoError(t, err)

	o, err := apply(u, WithCreateDir())
	assert.NoError(err)
	assert.Equal("true", o.url.Query().Get("create_dir"))
}

func TestWithCredentials(t *testing.T) {
	assert := assert.New(t)
	u, err := url.Parse("s3://mybucket")
	require.NoError(t, err)

	_, err = apply(u, WithCredentials("", "secret"))
	assert.Error(err)

	o, err := apply(u, WithCredentials("key", "secret"))
	if assert.NoError(err) {
		creds, err := o.credentials.Retrieve(context.Background())
		assert.NoError(err)
		assert.Equal("key", creds.AccessKeyID)
		assert.Equal("secret", creds.SecretAccessKey)
	}
}

func TestS3Client(t *testing.T) {
	assert := assert.New(t)
	u, err := url.Parse("s3://mybucket")
	require.NoError(t, err)

	cfg := aws.Config{Region: "us-east-1"}
	o, err := apply(u,
		WithAWSConfig(cfg),
		WithAnonymous(),
		WithEndpoint("http://localhost:9000"),
		WithTracer(noop.NewTracerProvider().Tracer("test")),
	)
	require.NoError(t, err)

	client, err := o.s3Client(context.Background())
	if assert.NoError(err) {
		assert.NotNil(client)
		opts := client.Options()
		assert.Equal("us-east-1", opts.Region)
		assert.True(opts.UsePathStyle)
		if assert.NotNil(opts.BaseEndpoint) {
			assert.Equal("http://localhost:9000", *opts.BaseEndpoint)
		}
		// Anonymous credentials are dropped so requests are not signed
		assert.Nil(opts.Credentials)
	}

	// The caller's config is not modified
	assert.Empty(cfg.APIOptions)
	assert.Nil(cfg.Credentials)

	// Static keys replace anonymous access
	o, err = apply(u, WithAWSConfig(cfg), WithCredentials("key", "secret"))
	require.NoError(t, err)
	client, err = o.s3Client(context.Background())
	if assert.NoError(err) && assert.NotNil(client.Options().Credentials) {
		creds, err := client.Options().Credentials.Retrieve(context.Background())
		if assert.NoError(err) {
			assert.Equal("key", creds.AccessKeyID)
		}
	}
}
