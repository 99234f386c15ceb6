package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jwebster45206/saga-engine/internal/events"
	"github.com/jwebster45206/saga-engine/internal/handlers"
	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/chat"
	"github.com/jwebster45206/saga-engine/pkg/turn"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

// apiClient talks to the saga-engine HTTP API
type apiClient struct {
	http    *http.Client
	baseURL string
}

func (c *apiClient) testConnection() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends body as JSON and decodes the response into out when the status
// matches want. API errors come back as their message.
func (c *apiClient) do(method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) listWorlds() ([]handlers.WorldSummary, error) {
	var worlds []handlers.WorldSummary
	err := c.do(http.MethodGet, "/v1/worlds", nil, http.StatusOK, &worlds)
	return worlds, err
}

func (c *apiClient) createWorld(concept string) (*world.World, error) {
	var w world.World
	if err := c.do(http.MethodPost, "/v1/worlds", map[string]string{"concept": concept}, http.StatusCreated, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *apiClient) createCharacter(worldID, concept string) (*world.SavedCharacter, error) {
	var sc world.SavedCharacter
	path := fmt.Sprintf("/v1/worlds/%s/characters", worldID)
	if err := c.do(http.MethodPost, path, map[string]string{"concept": concept}, http.StatusCreated, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func characterPath(worldID, characterID string) string {
	return fmt.Sprintf("/v1/worlds/%s/characters/%s", worldID, characterID)
}

func (c *apiClient) view(worldID, characterID string) (*turn.View, error) {
	var v turn.View
	if err := c.do(http.MethodGet, characterPath(worldID, characterID), nil, http.StatusOK, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *apiClient) act(worldID, characterID, action string) (*turn.Outcome, error) {
	var out turn.Outcome
	path := characterPath(worldID, characterID) + "/actions"
	if err := c.do(http.MethodPost, path, chat.ActionRequest{Action: action}, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ledger posts one of equip, unequip, buy or sell
func (c *apiClient) ledger(worldID, characterID, op string, body any) (*handlers.LedgerResponse, error) {
	var out handlers.LedgerResponse
	path := characterPath(worldID, characterID) + "/" + op
	if err := c.do(http.MethodPost, path, body, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) equip(worldID, characterID, itemID string) (*handlers.LedgerResponse, error) {
	return c.ledger(worldID, characterID, "equip", handlers.EquipRequest{ItemID: itemID})
}

func (c *apiClient) unequip(worldID, characterID string, slot actor.ItemSlot) (*handlers.LedgerResponse, error) {
	return c.ledger(worldID, characterID, "unequip", handlers.UnequipRequest{Slot: slot})
}

func (c *apiClient) buy(worldID, characterID, shopID, itemID string) (*handlers.LedgerResponse, error) {
	return c.ledger(worldID, characterID, "buy", handlers.TradeRequest{ShopID: shopID, ItemID: itemID})
}

func (c *apiClient) sell(worldID, characterID, shopID, itemID string) (*handlers.LedgerResponse, error) {
	return c.ledger(worldID, characterID, "sell", handlers.TradeRequest{ShopID: shopID, ItemID: itemID})
}

// listenToSSE streams world events until ctx ends or the server hangs up.
// A 404 means the server runs without an event stream.
func (c *apiClient) listenToSSE(ctx context.Context, worldID string, eventChan chan<- events.Event) error {
	url := fmt.Sprintf("%s/v1/worlds/%s/events", c.baseURL, worldID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// the shared client has a timeout that would cut the stream
	resp, err := (&http.Client{Transport: c.http.Transport}).Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	var eventType, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// Empty line signals end of event
			if eventType != "" && eventType != "connected" {
				var event events.Event
				if err := json.Unmarshal([]byte(data), &event); err == nil {
					select {
					case eventChan <- event:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
			eventType, data = "", ""
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
