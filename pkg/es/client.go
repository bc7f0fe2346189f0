// Package es 提供了工单全文检索的 Elasticsearch 客户端。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"helpdesk-go/internal/config"
	"helpdesk-go/internal/model"
	"helpdesk-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// TicketIndex 定义工单索引与检索操作。
type TicketIndex interface {
	IndexTicket(ctx context.Context, ticket *model.Ticket) error
	SearchTickets(ctx context.Context, query string, size int) ([]TicketHit, error)
}

// TicketHit 是一条检索结果。
type TicketHit struct {
	TicketID uint    `json:"ticketId"`
	Score    float64 `json:"score"`
	Subject  string  `json:"subject"`
	Category string  `json:"category"`
	Status   string  `json:"status"`
}

// ticketDocument 是存储在 Elasticsearch 中的工单文档。
type ticketDocument struct {
	TicketID    uint   `json:"ticket_id"`
	UserID      uint   `json:"user_id"`
	Category    string `json:"category"`
	TicketType  string `json:"ticket_type"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Resolution  string `json:"resolution"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}

const ticketMapping = `{
	"mappings": {
		"properties": {
			"ticket_id":   { "type": "long" },
			"user_id":     { "type": "long" },
			"category":    { "type": "keyword" },
			"ticket_type": { "type": "keyword" },
			"subject":     { "type": "text" },
			"description": { "type": "text" },
			"resolution":  { "type": "text" },
			"priority":    { "type": "keyword" },
			"status":      { "type": "keyword" }
		}
	}
}`

type ticketIndex struct {
	client    *elasticsearch.Client
	indexName string
}

// NewTicketIndex 初始化 Elasticsearch 客户端并确保索引存在。
func NewTicketIndex(esCfg config.ElasticsearchConfig) (TicketIndex, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	idx := &ticketIndex{client: client, indexName: esCfg.IndexName}
	if idx.indexName == "" {
		idx.indexName = "helpdesk_tickets"
	}
	if err := idx.createIndexIfNotExists(); err != nil {
		return nil, err
	}
	return idx, nil
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func (i *ticketIndex) createIndexIfNotExists() error {
	res, err := i.client.Indices.Exists([]string{i.indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", i.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(strings.NewReader(ticketMapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", i.indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", i.indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", i.indexName)
	return nil
}

// IndexTicket 写入或更新一个工单文档。
func (i *ticketIndex) IndexTicket(ctx context.Context, t *model.Ticket) error {
	doc := ticketDocument{
		TicketID:    t.ID,
		UserID:      t.UserID,
		Category:    t.Category,
		TicketType:  t.TicketType,
		Subject:     t.Subject,
		Description: t.Description,
		Resolution:  t.Resolution,
		Priority:    t.Priority,
		Status:      t.Status,
	}
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      i.indexName,
		DocumentID: strconv.FormatUint(uint64(t.ID), 10),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引工单到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index ticket")
	}
	return nil
}

// SearchTickets 在描述、主题与解决方案中做全文检索。
func (i *ticketIndex) SearchTickets(ctx context.Context, query string, size int) ([]TicketHit, error) {
	if size <= 0 {
		size = 10
	}
	body := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"subject^2", "description", "resolution"},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.indexName),
		i.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch 检索失败: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64        `json:"_score"`
				Source ticketDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("解析检索结果失败: %w", err)
	}

	hits := make([]TicketHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, TicketHit{
			TicketID: h.Source.TicketID,
			Score:    h.Score,
			Subject:  h.Source.Subject,
			Category: h.Source.Category,
			Status:   h.Source.Status,
		})
	}
	return hits, nil
}
