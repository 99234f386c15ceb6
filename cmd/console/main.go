package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/saga-engine/internal/config"
	"github.com/jwebster45206/saga-engine/internal/events"
	"github.com/jwebster45206/saga-engine/internal/handlers"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

func main() {
	envCfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := &ConsoleConfig{
		APIBaseURL: strings.TrimRight(envCfg.APIBaseURL, "/"),
		// a turn may wait on the narrator for the full server timeout
		Timeout: envCfg.NarratorTimeout + 30*time.Second,
	}

	client := &apiClient{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.APIBaseURL,
	}
	if !client.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s. Please ensure the API is running.\nTry: docker-compose up -d\n", cfg.APIBaseURL)
		os.Exit(1)
	}

	in := bufio.NewReader(os.Stdin)
	worldID, characterID, err := choosePlay(client, in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	view, err := client.view(worldID, characterID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load character: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(client, view),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventChan := make(chan events.Event, 16)
	go func() {
		// servers without redis have no stream; the console works without it
		_ = client.listenToSSE(ctx, worldID, eventChan)
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventChan:
				p.Send(worldEventMsg{event: ev})
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// choosePlay walks the player through picking or creating a world and a
// character and returns their ids
func choosePlay(client *apiClient, in *bufio.Reader) (string, string, error) {
	worlds, err := client.listWorlds()
	if err != nil {
		return "", "", fmt.Errorf("failed to list worlds: %w", err)
	}

	fmt.Println("Worlds:")
	for i, w := range worlds {
		fmt.Printf("  %d - %s (%d characters)\n", i+1, w.Name, len(w.Characters))
	}
	fmt.Println("  n - Create a new world")
	choice := prompt(in, "\nSelect a world: ")

	var selected handlers.WorldSummary
	if strings.EqualFold(choice, "n") {
		concept := prompt(in, "Describe the world you want to play in: ")
		fmt.Println("Building your world...")
		w, err := client.createWorld(concept)
		if err != nil {
			return "", "", fmt.Errorf("failed to create world: %w", err)
		}
		selected = handlers.WorldSummary{ID: w.ID, Name: w.Name}
	} else {
		i, err := strconv.Atoi(choice)
		if err != nil || i < 1 || i > len(worlds) {
			return "", "", fmt.Errorf("invalid selection")
		}
		selected = worlds[i-1]
	}

	fmt.Printf("\n%s characters:\n", selected.Name)
	for i, c := range selected.Characters {
		fmt.Printf("  %d - %s (level %d %s, turn %d)\n", i+1, c.Name, c.Level, c.Class, c.TurnCount)
	}
	fmt.Println("  n - Create a new character")
	choice = prompt(in, "\nSelect a character: ")

	if strings.EqualFold(choice, "n") {
		concept := prompt(in, "Describe your character: ")
		fmt.Println("Creating your character...")
		sc, err := client.createCharacter(selected.ID, concept)
		if err != nil {
			return "", "", fmt.Errorf("failed to create character: %w", err)
		}
		return selected.ID, sc.ID(), nil
	}
	i, err := strconv.Atoi(choice)
	if err != nil || i < 1 || i > len(selected.Characters) {
		return "", "", fmt.Errorf("invalid selection")
	}
	return selected.ID, selected.Characters[i-1].ID, nil
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
