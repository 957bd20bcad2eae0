package storeapi

import (
	"encoding/json"
	"strings"
	"time"

	domain "github.com/momiji-market/bff/internal/domain"
)

// apiTime tolerates both RFC3339 timestamps and the zone-less form the
// upstream serialiser emits for LocalDateTime fields; the latter is UTC.
type apiTime struct {
	time.Time
}

const localDateTimeLayout = "2006-01-02T15:04:05"

func (t *apiTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(localDateTimeLayout, raw)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}

func (t *apiTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	out := t.Time
	return &out
}

type orderItemPayload struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"productId"`
	ProductName     string `json:"productName"`
	ProductPrice    int64  `json:"productPrice"`
	Quantity        int64  `json:"quantity"`
	ProductImageURL string `json:"productImageUrl"`
}

type paymentPayload struct {
	ID            int64   `json:"id"`
	TransactionID string  `json:"transactionId"`
	PaymentMethod string  `json:"paymentMethod"`
	Status        string  `json:"status"`
	Amount        int64   `json:"amount"`
	RefundAmount  int64   `json:"refundAmount"`
	CreatedAt     apiTime `json:"createdAt"`
}

type orderPayload struct {
	ID                  int64              `json:"id"`
	OrderNumber         string             `json:"orderNumber"`
	UserID              string             `json:"userId"`
	Status              string             `json:"status"`
	OrderItems          []orderItemPayload `json:"orderItems"`
	Payments            []paymentPayload   `json:"payments"`
	CreatedAt           apiTime            `json:"createdAt"`
	UpdatedAt           apiTime            `json:"updatedAt"`
	DeliveredAt         *apiTime           `json:"deliveredAt"`
	CompletedAt         *apiTime           `json:"completedAt"`
	RequestedDeliveryAt *apiTime           `json:"requestedDeliveryAt"`
	RequestedTimeSlot   string             `json:"requestedDeliveryTimeSlot"`
}

func (p orderPayload) toDomain() domain.Order {
	// Unknown statuses pass through; derivation renders them inert and the
	// lifecycle service logs them.
	status, _ := domain.ParseOrderStatus(p.Status)

	items := make([]domain.OrderItem, 0, len(p.OrderItems))
	for _, item := range p.OrderItems {
		items = append(items, domain.OrderItem{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			ProductImageURL: item.ProductImageURL,
			UnitPrice:       item.ProductPrice,
			Quantity:        item.Quantity,
		})
	}

	payments := make([]domain.Payment, 0, len(p.Payments))
	for _, pay := range p.Payments {
		payments = append(payments, domain.Payment{
			ID:            pay.ID,
			TransactionID: pay.TransactionID,
			Method:        pay.PaymentMethod,
			Status:        pay.Status,
			Amount:        pay.Amount,
			RefundAmount:  pay.RefundAmount,
			CreatedAt:     pay.CreatedAt.Time,
		})
	}

	return domain.Order{
		ID:                  p.ID,
		OrderNumber:         p.OrderNumber,
		UserID:              p.UserID,
		Status:              status,
		Items:               items,
		Payments:            payments,
		CreatedAt:           p.CreatedAt.Time,
		UpdatedAt:           p.UpdatedAt.Time,
		DeliveredAt:         p.DeliveredAt.ptr(),
		CompletedAt:         p.CompletedAt.ptr(),
		RequestedDeliveryAt: p.RequestedDeliveryAt.ptr(),
		RequestedTimeSlot:   p.RequestedTimeSlot,
	}
}

type reviewPayload struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"productId"`
	OrderID   int64   `json:"orderId"`
	UserID    string  `json:"userId"`
	Rating    int     `json:"rating"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	CreatedAt apiTime `json:"createdAt"`
}

func (p reviewPayload) toDomain() domain.Review {
	return domain.Review{
		ID:        p.ID,
		ProductID: p.ProductID,
		OrderID:   p.OrderID,
		UserID:    p.UserID,
		Rating:    p.Rating,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt.Time,
	}
}

type favoritePayload struct {
	ProductID int64 `json:"productId"`
}
