package awsfx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	ConfigAwsRegion      = "aws.region"
	ConfigAwsEndpointURL = "aws.endpoint_url"
)

type ClientConfig struct {
	Region      string
	EndpointURL string // custom endpoint, used against local stacks in tests
}

func ClientConfigProvider(v *viper.Viper) *ClientConfig {
	return &ClientConfig{
		Region:      v.GetString(ConfigAwsRegion),
		EndpointURL: v.GetString(ConfigAwsEndpointURL),
	}
}

// Clients holds the AWS SDK clients the job consumes.
type Clients struct {
	EC2 *ec2.Client
	S3  *s3.Client
}

func NewClients(config *ClientConfig) (*Clients, error) {
	ctx := context.Background()

	opts := []func(*awsconfig.LoadOptions) error{}
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}
	if config.EndpointURL != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load AWS config")
	}

	if config.EndpointURL != "" {
		return newClientsWithEndpoint(cfg, config.EndpointURL), nil
	}
	return newClientsFromConfig(cfg), nil
}

func newClientsFromConfig(cfg aws.Config) *Clients {
	return &Clients{
		EC2: ec2.NewFromConfig(cfg),
		S3:  s3.NewFromConfig(cfg),
	}
}

func newClientsWithEndpoint(cfg aws.Config, endpoint string) *Clients {
	return &Clients{
		EC2: ec2.NewFromConfig(cfg, func(o *ec2.Options) { o.BaseEndpoint = aws.String(endpoint) }),
		S3: s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}),
	}
}
