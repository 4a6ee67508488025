package service

import (
	"encoding/json"
	"fmt"
	"html"
	"log"
	"strings"

	"anoa.com/cluverse/internal/entity"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const eventsIndex = "events"

// EventIndex keeps the full-text index of approved events.
type EventIndex interface {
	IndexEvent(event *entity.Event) error
	DeleteEvent(id string) error
	SearchEventIDs(query string, limit int) ([]string, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) EventIndex {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	filterableAttrs := []string{"category", "tags", "admin_id"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	_, err := s.client.Index(eventsIndex).UpdateFilterableAttributes(&filterableInterface)
	if err != nil {
		log.Printf("Failed to update events filterable attributes: %v", err)
	}

	sortableAttrs := []string{"date_time"}
	_, err = s.client.Index(eventsIndex).UpdateSortableAttributes(&sortableAttrs)
	if err != nil {
		log.Printf("Failed to update events sortable attributes: %v", err)
	}

	log.Println("Meilisearch indexes initialized")
}

type meiliEventDoc struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Venue       string   `json:"venue"`
	Tags        []string `json:"tags"`
	AdminID     string   `json:"admin_id"`
	DateTime    int64    `json:"date_time"`
}

func (s *meiliSearchService) cleanContentForIndex(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	sanitized := s.sanitizer.Sanitize(content)
	cleanText := html.UnescapeString(sanitized)

	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *meiliSearchService) IndexEvent(event *entity.Event) error {
	doc := meiliEventDoc{
		ID:          event.ID.String(),
		Title:       event.Title,
		Description: s.cleanContentForIndex(event.Description),
		Category:    event.Category,
		Venue:       event.Venue,
		Tags:        event.TagNames(),
		AdminID:     event.AdminID.String(),
		DateTime:    event.DateTime.Unix(),
	}

	task, err := s.client.Index(eventsIndex).AddDocuments([]meiliEventDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed event %s, task id: %d", event.ID, task.TaskUID)
	return nil
}

func (s *meiliSearchService) DeleteEvent(id string) error {
	_, err := s.client.Index(eventsIndex).DeleteDocument(id)
	return err
}

// SearchEventIDs returns matching event ids in relevance order.
func (s *meiliSearchService) SearchEventIDs(query string, limit int) ([]string, error) {
	raw, err := s.client.Index(eventsIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, fmt.Errorf("meilisearch query: %w", err)
	}

	return decodeHitIDs(*raw)
}

func decodeHitIDs(raw []byte) ([]string, error) {
	var resp struct {
		Hits []struct {
			ID string `json:"id"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode meilisearch hits: %w", err)
	}

	ids := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if hit.ID != "" {
			ids = append(ids, hit.ID)
		}
	}
	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
