// Package documents defines the data contract handed to the printable
// document collaborator. The artifact format itself is owned by that
// collaborator; this service only queues payloads and hands back references.
package documents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orders/internal/models"
)

// Document kinds queued for rendering.
const (
	KindOrderNote       = "order_note"
	KindDeliverySummary = "delivery_summary"
)

// NoteItem is one printable line of an order note.
type NoteItem struct {
	ProductName   string `json:"product_name"`
	QuantityUnits int    `json:"quantity_units"`
	QuantityBoxes int    `json:"quantity_boxes"`
	UnitPrice     string `json:"unit_price"`
	Subtotal      string `json:"subtotal"`
}

// OrderNote is the printable note for a single confirmed order.
type OrderNote struct {
	OrderID      uint       `json:"order_id"`
	Folio        string     `json:"folio"`
	ClientName   string     `json:"client_name"`
	BranchName   string     `json:"branch_name"`
	IsPickup     bool       `json:"is_pickup"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	Items        []NoteItem `json:"items"`
	Subtotal     string     `json:"subtotal"`
	Discount     string     `json:"discount"`
	Total        string     `json:"total"`
	Notes        *string    `json:"notes,omitempty"`
}

// SummaryLine is one delivery-bound order in the daily summary.
type SummaryLine struct {
	Folio      string `json:"folio"`
	ClientName string `json:"client_name"`
	BranchName string `json:"branch_name"`
	ItemCount  int    `json:"item_count"`
	Total      string `json:"total"`
}

// DeliverySummary lists every non-pickup order scheduled for one date.
type DeliverySummary struct {
	Date   string        `json:"date"`
	Orders []SummaryLine `json:"orders"`
}

// ArtifactRef is the opaque reference returned for a queued document.
type ArtifactRef struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Folio    string    `json:"folio,omitempty"`
	QueuedAt time.Time `json:"queued_at"`
}

// Renderer queues document payloads for the rendering collaborator.
type Renderer interface {
	RenderOrderNote(ctx context.Context, note OrderNote) (ArtifactRef, error)
	RenderDeliverySummary(ctx context.Context, summary DeliverySummary) (ArtifactRef, error)
}

// Publisher is the queue transport documents are handed to.
type Publisher interface {
	SendJSON(ctx context.Context, queueName string, body interface{}) error
}

// QueueRenderer implements Renderer over a Service Bus queue. The rendering
// collaborator consumes the queue and materializes the artifacts.
type QueueRenderer struct {
	publisher Publisher
	queueName string
}

// NewQueueRenderer creates a queue-backed renderer.
func NewQueueRenderer(publisher Publisher, queueName string) *QueueRenderer {
	return &QueueRenderer{publisher: publisher, queueName: queueName}
}

type queuedDocument struct {
	Ref     ArtifactRef `json:"ref"`
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// RenderOrderNote queues an order note payload and returns its reference
func (r *QueueRenderer) RenderOrderNote(ctx context.Context, note OrderNote) (ArtifactRef, error) {
	ref := ArtifactRef{
		ID:       uuid.New().String(),
		Kind:     KindOrderNote,
		Folio:    note.Folio,
		QueuedAt: time.Now().UTC(),
	}

	msg := queuedDocument{Ref: ref, Kind: KindOrderNote, Payload: note}
	if err := r.publisher.SendJSON(ctx, r.queueName, msg); err != nil {
		return ArtifactRef{}, errors.Wrap(err, "failed to queue order note")
	}

	log.Info().Str("folio", note.Folio).Str("artifact_id", ref.ID).Msg("order note queued for rendering")
	return ref, nil
}

// RenderDeliverySummary queues a delivery summary payload and returns its reference
func (r *QueueRenderer) RenderDeliverySummary(ctx context.Context, summary DeliverySummary) (ArtifactRef, error) {
	ref := ArtifactRef{
		ID:       uuid.New().String(),
		Kind:     KindDeliverySummary,
		QueuedAt: time.Now().UTC(),
	}

	msg := queuedDocument{Ref: ref, Kind: KindDeliverySummary, Payload: summary}
	if err := r.publisher.SendJSON(ctx, r.queueName, msg); err != nil {
		return ArtifactRef{}, errors.Wrap(err, "failed to queue delivery summary")
	}

	log.Info().Str("date", summary.Date).Str("artifact_id", ref.ID).Msg("delivery summary queued for rendering")
	return ref, nil
}

// BuildOrderNote maps a confirmed order (loaded with items, client and branch)
// to its printable note payload.
func BuildOrderNote(order *models.Order) OrderNote {
	items := make([]NoteItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, NoteItem{
			ProductName:   item.ProductName,
			QuantityUnits: item.QuantityUnits,
			QuantityBoxes: item.QuantityBoxes,
			UnitPrice:     item.UnitPrice.String(),
			Subtotal:      item.Subtotal.String(),
		})
	}

	note := OrderNote{
		OrderID:      order.ID,
		ClientName:   order.Client.Name,
		BranchName:   order.Branch.Name,
		IsPickup:     order.IsPickup,
		DeliveryDate: order.DeliveryDate,
		Items:        items,
		Subtotal:     order.Subtotal.String(),
		Discount:     order.Discount.String(),
		Total:        order.Total.String(),
		Notes:        order.Notes,
	}
	if order.Folio != nil {
		note.Folio = *order.Folio
	}
	return note
}
