package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/solace-api/internal/domain"
)

// AuditRepo appends security audit events. Writes are best-effort at the
// service layer; this repo itself just reports errors upward.
type AuditRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAuditRepo(client *dynamodb.Client, tableName string) *AuditRepo {
	return &AuditRepo{client: client, tableName: tableName}
}

func (r *AuditRepo) Put(ctx context.Context, e *domain.AuditEvent) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}
