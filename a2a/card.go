package a2a

import (
	"fmt"

	"trpc.group/trpc-go/trpc-a2a-go/server"
)

// NewAgentCard describes the movie agent for discovery at the well-known
// agent card endpoint. baseURL is the externally reachable root of this
// server, e.g. "http://localhost:41241/".
func NewAgentCard(baseURL, version string) server.AgentCard {
	return server.AgentCard{
		Name:        "Movie Agent",
		Description: "An agent that can answer questions about movies and actors using TMDB.",
		URL:         baseURL,
		Provider: &server.AgentProvider{
			Organization: "A2AProtocol.ai",
		},
		Version: version,
		Capabilities: server.AgentCapabilities{
			Streaming:              boolPtr(true),
			PushNotifications:      boolPtr(false),
			StateTransitionHistory: boolPtr(true),
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text", "task-status"},
		Skills: []server.AgentSkill{
			{
				ID:          "general_movie_chat",
				Name:        "General Movie Chat",
				Description: stringPtr("Answer general questions or chat about movies, actors, directors."),
				Tags:        []string{"movies", "actors", "directors"},
				Examples: []string{
					"Tell me about the plot of Inception.",
					"Recommend a good sci-fi movie.",
					"Who directed The Matrix?",
					"What other movies has Scarlett Johansson been in?",
					"Find action movies starring Keanu Reeves",
					"Which came out first, Jurassic Park or Terminator 2?",
				},
				InputModes:  []string{"text"},
				OutputModes: []string{"text", "task-status"},
			},
		},
	}
}

// BaseURL formats the externally reachable root for a listen port.
func BaseURL(port int) string {
	return fmt.Sprintf("http://localhost:%d/", port)
}

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
