package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"
)

var ErrEmptyCompletion = errors.New("model returned an empty completion")

// InvokeModelAPI is the slice of the Bedrock runtime client the agent uses.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	ModelID         string
	MaxTokens       int
	Temperature     float64
	Timeout         time.Duration
}

type BedrockClient struct {
	api         InvokeModelAPI
	logger      *zap.Logger
	modelID     string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// Text-completion request/response bodies for Anthropic models on Bedrock.
type completionRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	Temperature       float64  `json:"temperature"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
}

type completionResponse struct {
	Completion string `json:"completion"`
	StopReason string `json:"stop_reason"`
}

// NewBedrockClient loads AWS configuration for cfg.Region. Static keys are used
// when both the key id and secret are set; otherwise the default credential
// chain applies.
func NewBedrockClient(ctx context.Context, cfg BedrockConfig, logger *zap.Logger) (*BedrockClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return NewBedrockClientWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg, logger), nil
}

func NewBedrockClientWithAPI(api InvokeModelAPI, cfg BedrockConfig, logger *zap.Logger) *BedrockClient {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = "anthropic.claude-v2"
	}
	return &BedrockClient{
		api:         api,
		logger:      logger,
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

// Complete sends prompt as a single human turn and returns the raw completion.
func (c *BedrockClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(completionRequest{
		Prompt:            "\n\nHuman: " + prompt + "\n\nAssistant:",
		MaxTokensToSample: c.maxTokens,
		Temperature:       c.temperature,
		StopSequences:     []string{"\n\nHuman:"},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	start := time.Now()
	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		c.logger.Error("Bedrock invocation failed",
			zap.String("model", c.modelID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("invoking model %s: %w", c.modelID, err)
	}

	var resp completionResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}
	if strings.TrimSpace(resp.Completion) == "" {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug("Bedrock completion received",
		zap.String("model", c.modelID),
		zap.String("stop_reason", resp.StopReason),
		zap.Duration("duration", time.Since(start)))

	return resp.Completion, nil
}

func (c *BedrockClient) ModelID() string {
	return c.modelID
}
