package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"kos-manager/internal/billing"
	"kos-manager/models"
)

const periodLayout = "2006-01"

// API is the part of the DynamoDB client the invoice ledger needs.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type invoiceItem struct {
	PK            string `dynamodbav:"pk"`
	ID            string `dynamodbav:"id"`
	TenancyID     uint   `dynamodbav:"tenancy_id"`
	BillingPeriod string `dynamodbav:"billing_period"`
	Amount        string `dynamodbav:"amount"`
	DueDate       string `dynamodbav:"due_date"`
	Status        string `dynamodbav:"status"`
	CreatedAt     string `dynamodbav:"created_at"`
}

// InvoiceRepository stores generated invoices in DynamoDB.
//
// Table requirements:
//   - PK: pk (string), "<tenancy_id>#<YYYY-MM>"
//
// The natural key is the partition key, so a conditional put is the
// insert-or-ignore.
type InvoiceRepository struct {
	ddb       API
	tableName string
	now       func() time.Time
}

func NewInvoiceRepository(ddb API, tableName string) *InvoiceRepository {
	return &InvoiceRepository{ddb: ddb, tableName: tableName, now: time.Now}
}

func invoiceKey(tenancyID uint, period time.Time) string {
	return strconv.FormatUint(uint64(tenancyID), 10) + "#" + billing.PeriodOf(period).Format(periodLayout)
}

func (r *InvoiceRepository) InvoiceExists(ctx context.Context, tenancyID uint, period time.Time) (bool, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: invoiceKey(tenancyID, period)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, err
	}
	return len(out.Item) > 0, nil
}

func (r *InvoiceRepository) CreateInvoiceIfAbsent(ctx context.Context, invoice *models.Invoice) (bool, error) {
	av, err := attributevalue.MarshalMap(toInvoiceItem(*invoice, r.now()))
	if err != nil {
		return false, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "pk",
		},
	})
	var conflict *types.ConditionalCheckFailedException
	if errors.As(err, &conflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindInvoice loads the invoice of a tenancy for a period. ok is false when
// none was issued.
func (r *InvoiceRepository) FindInvoice(ctx context.Context, tenancyID uint, period time.Time) (models.Invoice, bool, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: invoiceKey(tenancyID, period)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return models.Invoice{}, false, err
	}
	if len(out.Item) == 0 {
		return models.Invoice{}, false, nil
	}

	var it invoiceItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return models.Invoice{}, false, err
	}
	inv, err := fromInvoiceItem(it)
	if err != nil {
		return models.Invoice{}, false, err
	}
	return inv, true, nil
}

// EnsureTable creates the invoices table when it does not exist yet.
func (r *InvoiceRepository) EnsureTable(ctx context.Context) error {
	_, err := r.ddb.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(r.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return nil
	}
	return err
}

func toInvoiceItem(inv models.Invoice, now time.Time) invoiceItem {
	return invoiceItem{
		PK:            invoiceKey(inv.TenancyID, inv.Period()),
		ID:            uuid.NewString(),
		TenancyID:     inv.TenancyID,
		BillingPeriod: inv.Period().Format(time.DateOnly),
		Amount:        inv.Amount.StringFixed(2),
		DueDate:       inv.Due().Format(time.DateOnly),
		Status:        string(inv.Status),
		CreatedAt:     now.UTC().Format(time.RFC3339),
	}
}

func fromInvoiceItem(it invoiceItem) (models.Invoice, error) {
	amount, err := decimal.NewFromString(it.Amount)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("invalid amount %q on %s: %w", it.Amount, it.PK, err)
	}
	period, err := time.Parse(time.DateOnly, it.BillingPeriod)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("invalid billing period %q on %s: %w", it.BillingPeriod, it.PK, err)
	}
	due, err := time.Parse(time.DateOnly, it.DueDate)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("invalid due date %q on %s: %w", it.DueDate, it.PK, err)
	}

	inv := models.Invoice{
		TenancyID:     it.TenancyID,
		BillingPeriod: datatypes.Date(period),
		Amount:        amount,
		DueDate:       datatypes.Date(due),
		Status:        models.InvoiceStatus(it.Status),
	}
	if t, err := time.Parse(time.RFC3339, it.CreatedAt); err == nil {
		inv.CreatedAt = t
	}
	return inv, nil
}
