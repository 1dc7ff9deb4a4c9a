package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/hackpal/pkg/log"
)

type DynamoConfig struct {
	Table    string `env:"DYNAMODB_TABLE,required,notEmpty"`
	Region   string `env:"AWS_REGION"`
	Endpoint string `env:"DYNAMODB_ENDPOINT"`
}

func NewDynamoConfig(ctx context.Context) *DynamoConfig {
	c := &DynamoConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse DynamoDB config")
	}
	return c
}
