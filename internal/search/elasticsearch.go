package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"example.com/backstage/services/orders/config"
	"example.com/backstage/services/orders/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// IndexClosedOrder indexes a closed order in Elasticsearch. The order must be
// loaded with its items, client and branch.
func (c *ElasticClient) IndexClosedOrder(ctx context.Context, order *models.Order) error {
	log.Info().Uint("order_id", order.ID).Msg("indexing closed order")

	items := make([]map[string]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]interface{}{
			"product_id":     item.ProductID,
			"product_name":   item.ProductName,
			"quantity_units": item.QuantityUnits,
			"quantity_boxes": item.QuantityBoxes,
			"unit_price":     item.UnitPrice.String(),
			"subtotal":       item.Subtotal.String(),
			"units_per_box":  item.UnitsPerBoxSnapshot,
			"box_type":       item.BoxTypeSnapshot,
		})
	}

	orderDoc := map[string]interface{}{
		"id":          order.ID,
		"folio":       order.Folio,
		"state":       order.State,
		"client_id":   order.ClientID,
		"client_name": order.Client.Name,
		"branch_id":   order.BranchID,
		"branch_name": order.Branch.Name,
		"is_pickup":   order.IsPickup,
		"exit_type":   order.AppliedExitType,
		"subtotal":    order.Subtotal.String(),
		"discount":    order.Discount.String(),
		"total":       order.Total.String(),
		"closed_at":   order.ClosedAt,
		"items":       items,
	}
	if order.DeliveryDate != nil {
		orderDoc["delivery_date"] = order.DeliveryDate.Format("2006-01-02")
	}

	docJson, err := json.Marshal(orderDoc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal order document")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: strconv.FormatUint(uint64(order.ID), 10),
		Body:       bytes.NewReader(docJson),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Info().Uint("order_id", order.ID).Msg("closed order indexed successfully")
	return nil
}

// SearchClosedOrders searches indexed closed orders with the given query
func (c *ElasticClient) SearchClosedOrders(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(indexName),
		c.client.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to decode search response")
	}

	hits := make([]map[string]interface{}, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		hits = append(hits, hit.Source)
	}
	return hits, nil
}
