// Package dynamo stores conversation history in a single DynamoDB table
// keyed by session (PK) and zero-padded turn sequence (SK).
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sandevgo/hackpal/internal/config"
	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/pkg/log"
	"github.com/sandevgo/hackpal/pkg/retry"
)

const (
	skPrefixTurn = "TURN#"
	ttlDuration  = 30 * 24 * time.Hour
	// DynamoDB rejects transactions with more items.
	maxTransactItems = 100
)

// dynamodbAPI is the minimal DynamoDB interface required by TurnsRepo.
type dynamodbAPI interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type TurnsRepo struct {
	api       dynamodbAPI
	tableName string
	retrier   *retry.Retrier
}

func New(api dynamodbAPI, tableName string) (*TurnsRepo, error) {
	if api == nil {
		return nil, errors.New("dynamo: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("dynamo: table name must not be empty")
	}

	retryCfg := &retry.Config{
		MaxRetries:    3,
		BackoffFactor: 2,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		Jitter:        25 * time.Millisecond,
		Retryable:     isConflict,
	}

	return &TurnsRepo{api: api, tableName: tableName, retrier: retry.NewRetrier(retryCfg)}, nil
}

// NewFromConfig builds a repository on the default AWS credential chain.
func NewFromConfig(ctx context.Context, cfg *config.DynamoConfig) (*TurnsRepo, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dynamo: load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client, cfg.Table)
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func turnSK(seq int64) string {
	return fmt.Sprintf("%s%012d", skPrefixTurn, seq)
}

// Append writes all turns in one transaction. Each put is conditional on
// the key being absent, so a concurrent writer that took the same sequence
// cancels the transaction; conflicts are retried with a fresh sequence.
func (r *TurnsRepo) Append(ctx context.Context, sessionID string, turns ...core.Turn) ([]core.Turn, error) {
	if len(turns) == 0 {
		return nil, nil
	}
	if len(turns) > maxTransactItems {
		return nil, fmt.Errorf("dynamo: Append: %d turns exceed transaction limit", len(turns))
	}

	var stored []core.Turn
	err := r.retrier.Do(ctx, func() error {
		last, err := r.lastSeq(ctx, sessionID)
		if err != nil {
			return retry.Permanent(err)
		}

		stored = make([]core.Turn, 0, len(turns))
		items := make([]types.TransactWriteItem, 0, len(turns))
		for _, t := range turns {
			last++
			t.SessionID = sessionID
			t.Seq = last
			if t.CreatedAt.IsZero() {
				t.CreatedAt = time.Now().UTC()
			}
			stored = append(stored, t)
			items = append(items, types.TransactWriteItem{
				Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                turnItem(t),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			})
		}

		_, err = r.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: Append: %w", err)
	}
	return stored, nil
}

// Read returns the last limit turns in chronological order. A non-positive
// limit pages through the whole session.
func (r *TurnsRepo) Read(ctx context.Context, sessionID string, limit int) ([]core.Turn, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
		},
		// Newest first so LIMIT keeps the most recent window.
		ScanIndexForward: aws.Bool(false),
		ConsistentRead:   aws.Bool(true),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	var turns []core.Turn
	for {
		out, err := r.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("dynamo: Read query: %w", err)
		}
		for _, item := range out.Items {
			t, err := itemToTurn(item)
			if err != nil {
				return nil, fmt.Errorf("dynamo: Read unmarshal: %w", err)
			}
			turns = append(turns, t)
		}
		if limit > 0 || len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	log.FromCtx(ctx).Debug().Str("session_id", sessionID).Int("count", len(turns)).Msg("loaded turns")
	return turns, nil
}

func (r *TurnsRepo) lastSeq(ctx context.Context, sessionID string) (int64, error) {
	recent, err := r.Read(ctx, sessionID, 1)
	if err != nil {
		return 0, err
	}
	if len(recent) == 0 {
		return 0, nil
	}
	return recent[0].Seq, nil
}

func isConflict(err error) bool {
	var canceled *types.TransactionCanceledException
	var condition *types.ConditionalCheckFailedException
	return errors.As(err, &canceled) || errors.As(err, &condition)
}

func turnItem(t core.Turn) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: sessionPK(t.SessionID)},
		"SK":        &types.AttributeValueMemberS{Value: turnSK(t.Seq)},
		"sessionId": &types.AttributeValueMemberS{Value: t.SessionID},
		"seq":       &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Seq, 10)},
		"speaker":   &types.AttributeValueMemberS{Value: t.Speaker},
		"role":      &types.AttributeValueMemberS{Value: t.Role},
		"content":   &types.AttributeValueMemberS{Value: t.Content},
		"createdAt": &types.AttributeValueMemberS{Value: t.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(t.CreatedAt.Add(ttlDuration).Unix(), 10)},
	}
}

func itemToTurn(item map[string]types.AttributeValue) (core.Turn, error) {
	sessionID, err := strAttr(item, "sessionId")
	if err != nil {
		return core.Turn{}, err
	}
	seq, err := intAttr(item, "seq")
	if err != nil {
		return core.Turn{}, err
	}
	speaker, err := strAttr(item, "speaker")
	if err != nil {
		return core.Turn{}, err
	}
	role, err := strAttr(item, "role")
	if err != nil {
		return core.Turn{}, err
	}
	content, _ := strAttr(item, "content") // allow empty
	created, err := strAttr(item, "createdAt")
	if err != nil {
		return core.Turn{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return core.Turn{}, fmt.Errorf("parse createdAt: %w", err)
	}

	return core.Turn{
		SessionID: sessionID,
		Seq:       seq,
		Speaker:   speaker,
		Role:      role,
		Content:   content,
		CreatedAt: createdAt,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
