// Package dynamodb implements the record store on Amazon DynamoDB.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
	output "spec-registry-service/internal/core/ports/output"
	"spec-registry-service/internal/core/update"
)

// API is the subset of the DynamoDB client used here.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Table maps one DynamoDB table with partition key tenant_id and sort key
// schema.IDAttr. Secondary indexes are GSIs named as in the schema.
type Table struct {
	api    API
	schema output.TableSchema
}

func NewTable(api API, schema output.TableSchema) *Table {
	return &Table{api: api, schema: schema}
}

func (t *Table) key(key domain.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		domain.AttrTenantID: &types.AttributeValueMemberS{Value: key.TenantID},
		t.schema.IDAttr:     &types.AttributeValueMemberS{Value: key.ID},
	}
}

func (t *Table) Get(ctx context.Context, key domain.Key) (codec.Item, error) {
	out, err := t.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.schema.Name),
		Key:            t.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeError("get item", err)
	}
	if len(out.Item) == 0 {
		return nil, domain.ErrNotFound
	}
	return codec.Item(fromAttributeMap(out.Item)), nil
}

func (t *Table) Put(ctx context.Context, item codec.Item) error {
	av, err := toAttributeMap(item)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	_, err = t.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(t.schema.Name),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": t.schema.IDAttr},
	})
	if err != nil {
		return storeError("put item", err)
	}
	return nil
}

func (t *Table) Update(ctx context.Context, key domain.Key, op update.Op) error {
	expr, names, values := op.Expression()
	av, err := toAttributeMap(values)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	in := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.schema.Name),
		Key:                       t.key(key),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: av,
	}
	if op.Condition == update.ItemExists {
		in.ConditionExpression = aws.String("attribute_exists(#pk)")
		in.ExpressionAttributeNames["#pk"] = domain.AttrTenantID
	}

	if _, err := t.api.UpdateItem(ctx, in); err != nil {
		return storeError("update item", err)
	}
	return nil
}

func (t *Table) Delete(ctx context.Context, key domain.Key) error {
	_, err := t.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.schema.Name),
		Key:       t.key(key),
	})
	if err != nil {
		return storeError("delete item", err)
	}
	return nil
}

func (t *Table) Query(ctx context.Context, q output.Query) ([]codec.Item, error) {
	in, err := t.queryInput(q)
	if err != nil {
		return nil, err
	}

	var items []codec.Item
	pages := dynamodb.NewQueryPaginator(t.api, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, storeError("query items", err)
		}
		for _, it := range page.Items {
			items = append(items, codec.Item(fromAttributeMap(it)))
		}
	}
	return items, nil
}

func (t *Table) queryInput(q output.Query) (*dynamodb.QueryInput, error) {
	idx, ok := t.schema.Index(q.Index)
	if !ok {
		return nil, fmt.Errorf("%w: unknown index %q on %s", domain.ErrValidation, q.Index, t.schema.Name)
	}

	cond := "#p = :p"
	names := map[string]string{"#p": idx.PartitionAttr}
	values := map[string]types.AttributeValue{":p": &types.AttributeValueMemberS{Value: q.PartitionValue}}

	if idx.SortAttr != "" {
		switch {
		case q.SortEquals != "":
			cond += " AND #s = :s"
			names["#s"] = idx.SortAttr
			values[":s"] = &types.AttributeValueMemberS{Value: q.SortEquals}
		case q.SortPrefix != "":
			cond += " AND begins_with(#s, :s)"
			names["#s"] = idx.SortAttr
			values[":s"] = &types.AttributeValueMemberS{Value: q.SortPrefix}
		}
	}

	return &dynamodb.QueryInput{
		TableName:                 aws.String(t.schema.Name),
		IndexName:                 aws.String(idx.Name),
		KeyConditionExpression:    aws.String(cond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}, nil
}

func storeError(op string, err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return domain.ErrConditionFailed
	}
	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrTransientStore, op, err)
}

var _ output.Table = (*Table)(nil)
