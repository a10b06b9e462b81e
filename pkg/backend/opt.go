package backend

import (
	"context"
	"fmt"
	"net/url"

	// Packages
	aws "github.com/aws/aws-sdk-go-v2/aws"
	config "github.com/aws/aws-sdk-go-v2/config"
	credentials "github.com/aws/aws-sdk-go-v2/credentials"
	s3 "github.com/aws/aws-sdk-go-v2/service/s3"
	otelaws "go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type opt struct {
	url         *url.URL
	awsConfig   *aws.Config
	endpoint    string       // S3-compatible endpoint; forces path-style addressing
	anonymous   bool         // forces anonymous credentials
	credentials aws.CredentialsProvider
	tracer      trace.Tracer // optional OTel tracer; when set, AWS SDK middleware is injected
}

type Opt func(*opt) error

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func apply(url *url.URL, opts ...Opt) (*opt, error) {
	// Apply options
	o := opt{url: url}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	// Return success
	return &o, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// WithEndpoint sets the S3 endpoint for S3-compatible services such as MinIO.
func WithEndpoint(endpoint string) Opt {
	return func(o *opt) error {
		if endpoint == "" {
			return nil
		} else if u, err := url.Parse(endpoint); err != nil {
			return err
		} else if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("endpoint must be http:// or https://, got %s://", u.Scheme)
		} else {
			o.endpoint = u.String()
		}
		return nil
	}
}

// WithAnonymous forces use of anonymous credentials.
// Use this for S3-compatible services that don't require authentication.
func WithAnonymous() Opt {
	return func(o *opt) error {
		o.anonymous = true
		return nil
	}
}

// WithCredentials sets static access keys for s3:// backends.
func WithCredentials(key, secret string) Opt {
	return func(o *opt) error {
		if key == "" || secret == "" {
			return fmt.Errorf("both access key and secret are required")
		}
		o.credentials = credentials.NewStaticCredentialsProvider(key, secret, "")
		return nil
	}
}

// WithCreateDir sets create_dir=true for file:// URLs to create the directory if it doesn't exist
func WithCreateDir() Opt {
	return func(o *opt) error {
		o.set("create_dir", "true")
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the backend.
// When set on an s3:// backend, AWS SDK middleware is injected so each S3 API
// call produces a child span.
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opt) error {
		o.tracer = tracer
		return nil
	}
}

// WithAWSConfig provides an AWS SDK v2 Config directly. When provided for
// s3:// URLs, this config is used instead of the default credential chain.
func WithAWSConfig(cfg aws.Config) Opt {
	return func(o *opt) error {
		o.awsConfig = &cfg
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (o *opt) set(key, value string) {
	if o.url == nil {
		return
	}
	q := o.url.Query()
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	o.url.RawQuery = q.Encode()
}

// s3Client returns an S3 client built from the options. Without an explicit
// config the default credential chain is loaded, with the region taken from
// the "region" query parameter.
func (o *opt) s3Client(ctx context.Context) (*s3.Client, error) {
	var cfg aws.Config
	if o.awsConfig != nil {
		cfg = o.awsConfig.Copy()
	} else {
		var loadOpts []func(*config.LoadOptions) error
		if region := o.url.Query().Get("region"); region != "" {
			loadOpts = append(loadOpts, config.WithRegion(region))
		}
		if o.credentials != nil {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(o.credentials))
		}
		if c, err := config.LoadDefaultConfig(ctx, loadOpts...); err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		} else {
			cfg = c
		}
	}
	if o.credentials != nil {
		cfg.Credentials = o.credentials
	}
	if o.anonymous {
		cfg.Credentials = aws.AnonymousCredentials{}
	}
	if o.tracer != nil {
		otelaws.AppendMiddlewares(&cfg.APIOptions)
	}
	return s3.NewFromConfig(cfg, func(s3opts *s3.Options) {
		if o.endpoint != "" {
			s3opts.BaseEndpoint = aws.String(o.endpoint)
			s3opts.UsePathStyle = true
		}
	}), nil
}
