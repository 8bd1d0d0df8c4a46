package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/solace-api/internal/domain"
)

// TokenRepo manages single-use verification tokens.
// PK: token_hash. GSI: identifier-index for reissue invalidation.
type TokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTokenRepo(client *dynamodb.Client, tableName string) *TokenRepo {
	return &TokenRepo{client: client, tableName: tableName}
}

func (r *TokenRepo) Put(ctx context.Context, t *domain.VerificationToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal verification token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ConsumeByHash atomically deletes the row for tokenHash and returns it.
// DeleteItem with ReturnValues=ALL_OLD closes the lookup-then-delete race at
// the storage layer: of two concurrent redemptions exactly one gets the old
// item, the other gets nothing and fails with not-found.
func (r *TokenRepo) ConsumeByHash(ctx context.Context, tokenHash string) (*domain.VerificationToken, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          strKey("token_hash", tokenHash),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, err
	}
	if len(out.Attributes) == 0 {
		return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	var t domain.VerificationToken
	if err := attributevalue.UnmarshalMap(out.Attributes, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteByIdentifier removes all outstanding tokens for an identifier.
// Called on reissue so only the newest link remains redeemable.
func (r *TokenRepo) DeleteByIdentifier(ctx context.Context, identifier string) error {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("identifier-index"),
		KeyConditionExpression: aws.String("identifier = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: identifier},
		},
		ProjectionExpression: aws.String("token_hash"),
	})
	if err != nil {
		return err
	}
	for _, item := range out.Items {
		hash, ok := item["token_hash"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("token_hash", hash.Value),
		}); err != nil {
			return err
		}
	}
	return nil
}
