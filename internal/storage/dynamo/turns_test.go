package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sandevgo/hackpal/internal/core"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items per partition and honours the attribute_not_exists
// condition used by Append.
type fakeDynamo struct {
	mu        sync.Mutex
	items     map[string]map[string]map[string]types.AttributeValue
	queryErr  error
	failTxN   int
	txCalls   int
	lastQuery *dynamodb.QueryInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = in
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	pk := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	var keys []string
	for sk := range f.items[pk] {
		keys = append(keys, sk)
	}
	sort.Strings(keys)
	if in.ScanIndexForward != nil && !*in.ScanIndexForward {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	}
	if in.Limit != nil && int(*in.Limit) < len(keys) {
		keys = keys[:*in.Limit]
	}

	out := &dynamodb.QueryOutput{}
	for _, sk := range keys {
		out.Items = append(out.Items, f.items[pk][sk])
	}
	return out, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCalls++
	if f.failTxN > 0 {
		f.failTxN--
		return nil, &types.TransactionCanceledException{Message: aws.String("conditional check failed")}
	}

	for _, ti := range in.TransactItems {
		pk := ti.Put.Item["PK"].(*types.AttributeValueMemberS).Value
		sk := ti.Put.Item["SK"].(*types.AttributeValueMemberS).Value
		if _, exists := f.items[pk][sk]; exists {
			return nil, &types.TransactionCanceledException{Message: aws.String("conditional check failed")}
		}
	}
	for _, ti := range in.TransactItems {
		pk := ti.Put.Item["PK"].(*types.AttributeValueMemberS).Value
		sk := ti.Put.Item["SK"].(*types.AttributeValueMemberS).Value
		if f.items[pk] == nil {
			f.items[pk] = make(map[string]map[string]types.AttributeValue)
		}
		f.items[pk][sk] = ti.Put.Item
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func mustNewRepo(t *testing.T, db *fakeDynamo) *TurnsRepo {
	t.Helper()
	r, err := New(db, "hackpal-test")
	require.NoError(t, err)
	return r
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "table")
	require.Error(t, err)
	_, err = New(newFakeDynamo(), "  ")
	require.Error(t, err)
}

func TestAppend_AssignsSequenceAndPersists(t *testing.T) {
	ctx := context.Background()
	db := newFakeDynamo()
	r := mustNewRepo(t, db)

	stored, err := r.Append(ctx, "abc",
		core.NewUserTurn("abc", "give me project ideas"),
		core.NewResponderTurn("abc", "Idea Generator", "Build a study buddy"),
	)
	require.NoError(t, err)
	require.Equal(t, int64(1), stored[0].Seq)
	require.Equal(t, int64(2), stored[1].Seq)
	require.Contains(t, db.items["SESSION#abc"], "TURN#000000000001")
	require.Contains(t, db.items["SESSION#abc"], "TURN#000000000002")

	stored, err = r.Append(ctx, "abc", core.NewUserTurn("abc", "next"))
	require.NoError(t, err)
	require.Equal(t, int64(3), stored[0].Seq)
}

func TestAppend_RetriesOnConflict(t *testing.T) {
	db := newFakeDynamo()
	db.failTxN = 2
	r := mustNewRepo(t, db)

	stored, err := r.Append(context.Background(), "abc", core.NewUserTurn("abc", "hi"))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, 3, db.txCalls)
}

func TestAppend_QueryErrorIsNotRetried(t *testing.T) {
	db := newFakeDynamo()
	db.queryErr = errors.New("ResourceNotFoundException")
	r := mustNewRepo(t, db)

	_, err := r.Append(context.Background(), "abc", core.NewUserTurn("abc", "hi"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Append")
	require.Equal(t, 0, db.txCalls)
}

func TestRead_ReturnsChronologicalWindow(t *testing.T) {
	ctx := context.Background()
	db := newFakeDynamo()
	r := mustNewRepo(t, db)

	for i := 1; i <= 12; i++ {
		_, err := r.Append(ctx, "abc", core.NewUserTurn("abc", fmt.Sprintf("msg %d", i)))
		require.NoError(t, err)
	}

	turns, err := r.Read(ctx, "abc", 10)
	require.NoError(t, err)
	require.Len(t, turns, 10)
	require.Equal(t, "msg 3", turns[0].Content)
	require.Equal(t, "msg 12", turns[9].Content)
	require.False(t, *db.lastQuery.ScanIndexForward)
	require.Equal(t, int32(10), *db.lastQuery.Limit)

	all, err := r.Read(ctx, "abc", 0)
	require.NoError(t, err)
	require.Len(t, all, 12)
}

func TestRead_MalformedItem(t *testing.T) {
	db := newFakeDynamo()
	db.items["SESSION#abc"] = map[string]map[string]types.AttributeValue{
		"TURN#000000000001": {
			"PK":  &types.AttributeValueMemberS{Value: "SESSION#abc"},
			"SK":  &types.AttributeValueMemberS{Value: "TURN#000000000001"},
			"seq": &types.AttributeValueMemberS{Value: "bad"},
		},
	}
	r := mustNewRepo(t, db)

	_, err := r.Read(context.Background(), "abc", 10)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmarshal")
}
