package ledger

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a small in-memory stand-in for DynamoDB covering just the
// calls the Store issues. Not production-grade; test support only.
type mockDynamo struct {
	mu     sync.Mutex
	tables map[string]*mockTable

	transactCalls int
	updateCalls   int
}

// mockTable keys its items by the table's declared PK attribute. Items in the
// keys table carry both idempotency_key and payment_id, so guessing the key
// from the item's attributes would file them under the wrong PK.
type mockTable struct {
	pk    string
	items map[string]map[string]types.AttributeValue
}

// newMockDynamo takes table name -> PK attribute name.
func newMockDynamo(tablePKs map[string]string) *mockDynamo {
	m := &mockDynamo{tables: map[string]*mockTable{}}
	for name, pk := range tablePKs {
		m.tables[name] = &mockTable{pk: pk, items: map[string]map[string]types.AttributeValue{}}
	}
	return m
}

func (m *mockDynamo) table(name string) (*mockTable, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, errors.New("unknown table: " + name)
	}
	return t, nil
}

func (t *mockTable) keyOf(item map[string]types.AttributeValue) (string, error) {
	v, ok := item[t.pk]
	if !ok {
		return "", errors.New("item missing PK attribute " + t.pk)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("PK attribute " + t.pk + " is not a string")
	}
	return s.Value, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, err := m.table(*params.TableName)
	if err != nil {
		return nil, err
	}
	k, err := table.keyOf(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && strings.HasPrefix(*params.ConditionExpression, "attribute_not_exists") {
		if _, exists := table.items[k]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	table.items[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, err := m.table(*params.TableName)
	if err != nil {
		return nil, err
	}
	k, err := table.keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := table.items[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	table, err := m.table(*params.TableName)
	if err != nil {
		return nil, err
	}
	k, err := table.keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := table.items[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}

	// enforce the store's optimistic condition: #s = :expected
	if params.ConditionExpression != nil && strings.Contains(*params.ConditionExpression, ":expected") {
		current, _ := item["status"].(*types.AttributeValueMemberS)
		expected := params.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberS)
		if current == nil || current.Value != expected.Value {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}

	// naive application of the store's known expression values
	setters := map[string]string{
		":new":  "status",
		":ua":   "updated_at",
		":gpid": "gateway_payment_id",
		":pm":   "payment_method",
		":fr":   "failure_reason",
		":ca":   "completed_at",
		":rf":   "refund",
	}
	for placeholder, attr := range setters {
		if v, ok := params.ExpressionAttributeValues[placeholder]; ok {
			item[attr] = v
		}
	}
	if _, ok := params.ExpressionAttributeValues[":inc"]; ok {
		current := int64(0)
		if n, ok := item["retry_count"].(*types.AttributeValueMemberN); ok {
			current, _ = strconv.ParseInt(n.Value, 10, 64)
		}
		item["retry_count"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current+1, 10)}
	}
	table.items[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, err := m.table(*params.TableName)
	if err != nil {
		return nil, err
	}
	out := &dyn.QueryOutput{}
	if params.IndexName == nil {
		return nil, errors.New("mock only supports index queries")
	}
	switch *params.IndexName {
	case gatewayOrderIndex:
		want := params.ExpressionAttributeValues[":oid"].(*types.AttributeValueMemberS).Value
		for _, item := range table.items {
			if v, ok := item["gateway_order_id"].(*types.AttributeValueMemberS); ok && v.Value == want {
				out.Items = append(out.Items, item)
			}
		}
	case statusExpiryIndex:
		wantStatus := params.ExpressionAttributeValues[":st"].(*types.AttributeValueMemberS).Value
		cutoff, _ := strconv.ParseInt(params.ExpressionAttributeValues[":now"].(*types.AttributeValueMemberN).Value, 10, 64)
		for _, item := range table.items {
			st, ok := item["status"].(*types.AttributeValueMemberS)
			if !ok || st.Value != wantStatus {
				continue
			}
			exp, ok := item["expires_at"].(*types.AttributeValueMemberN)
			if !ok {
				continue
			}
			expVal, _ := strconv.ParseInt(exp.Value, 10, 64)
			if expVal <= cutoff {
				out.Items = append(out.Items, item)
			}
		}
	default:
		return nil, errors.New("unknown index: " + *params.IndexName)
	}
	return out, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactCalls++
	// first pass: check all conditions
	for _, it := range params.TransactItems {
		p := it.Put
		if p == nil {
			continue
		}
		table, err := m.table(*p.TableName)
		if err != nil {
			return nil, err
		}
		if p.ConditionExpression != nil && strings.HasPrefix(*p.ConditionExpression, "attribute_not_exists") {
			k, err := table.keyOf(p.Item)
			if err != nil {
				return nil, err
			}
			if _, exists := table.items[k]; exists {
				return nil, &types.TransactionCanceledException{}
			}
		}
	}
	// second pass: apply puts
	for _, it := range params.TransactItems {
		p := it.Put
		if p == nil {
			continue
		}
		table := m.tables[*p.TableName]
		k, err := table.keyOf(p.Item)
		if err != nil {
			return nil, err
		}
		table.items[k] = p.Item
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}
