package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDocumentStore stores documents in a single DynamoDB table keyed by
// (collection, doc_id).
type DynamoDocumentStore struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoDocument represents the DynamoDB item structure
type dynamoDocument struct {
	Collection string `dynamodbav:"collection"`
	DocID      string `dynamodbav:"doc_id"`
	Owner      string `dynamodbav:"owner_id"`
	Doc        string `dynamodbav:"doc"`
	UpdatedAt  string `dynamodbav:"updated_at"`
}

func NewDynamoDocumentStore(client *dynamodb.Client, tableName string) *DynamoDocumentStore {
	return &DynamoDocumentStore{
		client:    client,
		tableName: tableName,
	}
}

func (ds *DynamoDocumentStore) Get(ctx context.Context, collection, id string) (json.RawMessage, bool, error) {
	result, err := ds.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ds.tableName),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"doc_id":     &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get document: %w", err)
	}
	if result.Item == nil {
		return nil, false, nil
	}

	var item dynamoDocument
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal document item: %w", err)
	}

	return json.RawMessage(item.Doc), true, nil
}

// Set overwrites the whole document. There is deliberately no condition
// expression: the reconcilers write their full current view, last write wins.
func (ds *DynamoDocumentStore) Set(ctx context.Context, collection, id, owner string, doc any) error {
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	item := dynamoDocument{
		Collection: collection,
		DocID:      id,
		Owner:      owner,
		Doc:        string(jsonDoc),
		UpdatedAt:  time.Now().Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal document item: %w", err)
	}

	_, err = ds.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ds.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}

	return nil
}

func (ds *DynamoDocumentStore) Query(ctx context.Context, collection, owner string) ([]json.RawMessage, error) {
	var docs []json.RawMessage
	var lastKey map[string]types.AttributeValue

	for {
		result, err := ds.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(ds.tableName),
			KeyConditionExpression: aws.String("#coll = :coll"),
			FilterExpression:       aws.String("#owner = :owner"),
			ExpressionAttributeNames: map[string]string{
				"#coll":  "collection",
				"#owner": "owner_id",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":coll":  &types.AttributeValueMemberS{Value: collection},
				":owner": &types.AttributeValueMemberS{Value: owner},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query documents: %w", err)
		}

		for _, rawItem := range result.Items {
			var item dynamoDocument
			if err := attributevalue.UnmarshalMap(rawItem, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal document item: %w", err)
			}
			docs = append(docs, json.RawMessage(item.Doc))
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}

	return docs, nil
}
