package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
)

// CheckoutParams describes a one-off hosted checkout for a plan purchase.
type CheckoutParams struct {
	IdempotencyKey string
	Name           string
	Note           string
	AmountCents    int64
	Currency       string
	RedirectURL    string
}

// Checkout is the hosted payment link handed to the client.
type Checkout struct {
	LinkID  string
	OrderID string
	URL     string
}

// OrderStatus is the processor-side view of a checkout order.
type OrderStatus struct {
	OrderID     string
	State       string
	Paid        bool
	PaymentID   string
	AmountCents int64
	Currency    string
}

func (p CheckoutParams) toSquareRequest(idempotencyKey, locationID string) *sqcheckout.CreatePaymentLinkRequest {
	req := &sqcheckout.CreatePaymentLinkRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		QuickPay: &sq.QuickPay{
			Name:       strings.TrimSpace(p.Name),
			PriceMoney: moneyPtr(p.AmountCents, p.Currency),
			LocationID: locationID,
		},
		PaymentNote: ptrString(strings.TrimSpace(p.Note)),
	}
	if redirect := strings.TrimSpace(p.RedirectURL); redirect != "" {
		req.CheckoutOptions = &sq.CheckoutOptions{RedirectURL: ptrString(redirect)}
	}
	return req
}

func orderStatusFrom(order *sq.Order) *OrderStatus {
	if order == nil {
		return nil
	}
	out := &OrderStatus{OrderID: stringValue(order.ID)}
	if order.State != nil {
		out.State = string(*order.State)
	}
	if order.TotalMoney != nil {
		if order.TotalMoney.Amount != nil {
			out.AmountCents = *order.TotalMoney.Amount
		}
		if order.TotalMoney.Currency != nil {
			out.Currency = string(*order.TotalMoney.Currency)
		}
	}
	for _, tender := range order.Tenders {
		if tender == nil {
			continue
		}
		if id := stringValue(tender.PaymentID); id != "" {
			out.PaymentID = id
			break
		}
	}

	due := int64(-1)
	if order.NetAmountDueMoney != nil && order.NetAmountDueMoney.Amount != nil {
		due = *order.NetAmountDueMoney.Amount
	}
	out.Paid = out.State == orderStateCompleted || (out.PaymentID != "" && due == 0)
	return out
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "ILS"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
