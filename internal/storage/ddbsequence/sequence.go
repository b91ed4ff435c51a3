// Package ddbsequence выдаёт increment id из таблицы DynamoDB атомарным ADD.
package ddbsequence

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

const (
	attrSequenceKey = "sequence_key"
	attrLastValue   = "last_value"
	attrUpdatedAt   = "updated_at"
)

// API — подмножество клиента DynamoDB, которое нужно генератору.
type API interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// NewClient создаёт клиент DynamoDB из стандартной цепочки конфигурации AWS.
// Непустой endpoint переопределяет адрес сервиса (DynamoDB Local, LocalStack).
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

type sequenceKey struct {
	Key string `dynamodbav:"sequence_key"`
}

type sequenceValue struct {
	LastValue int64 `dynamodbav:"last_value"`
}

// Sequence — генератор increment id для одного типа сущности.
type Sequence struct {
	api        API
	table      string
	entityCode string
	now        func() time.Time
}

// NewSequence создаёт генератор поверх таблицы table.
func NewSequence(api API, table, entityCode string) *Sequence {
	return &Sequence{
		api:        api,
		table:      table,
		entityCode: entityCode,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SequenceFactory возвращает фабрику генераторов для всех типов сущностей.
func SequenceFactory(api API, table string) func(entityCode string) domain.SequenceGenerator {
	return func(entityCode string) domain.SequenceGenerator {
		return NewSequence(api, table, entityCode)
	}
}

// Next увеличивает last_value элемента <type>#<partition> и возвращает новое значение.
func (s *Sequence) Next(ctx context.Context, partitionKey string) (string, error) {
	storeID, err := domain.ParsePartitionKey(partitionKey)
	if err != nil {
		return "", domain.NewAllocationError(partitionKey, err)
	}

	input, err := s.updateInput(partitionKey)
	if err != nil {
		return "", domain.NewAllocationError(partitionKey, err)
	}

	out, err := s.api.UpdateItem(ctx, input)
	if err != nil {
		return "", domain.NewAllocationError(partitionKey, fmt.Errorf("update %s sequence: %w", s.entityCode, err))
	}

	var value sequenceValue
	if err := attributevalue.UnmarshalMap(out.Attributes, &value); err != nil {
		return "", domain.NewAllocationError(partitionKey, fmt.Errorf("decode %s sequence: %w", s.entityCode, err))
	}
	if value.LastValue <= 0 {
		return "", domain.NewAllocationError(partitionKey, fmt.Errorf("%s sequence returned %d", s.entityCode, value.LastValue))
	}

	return domain.FormatIncrementID(storeID, value.LastValue), nil
}

func (s *Sequence) updateInput(partitionKey string) (*dynamodb.UpdateItemInput, error) {
	key, err := attributevalue.MarshalMap(sequenceKey{Key: s.entityCode + "#" + partitionKey})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}

	update := expression.
		Add(expression.Name(attrLastValue), expression.Value(1)).
		Set(expression.Name(attrUpdatedAt), expression.Value(s.now().Format(time.RFC3339Nano)))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	}, nil
}

var _ domain.SequenceGenerator = (*Sequence)(nil)
