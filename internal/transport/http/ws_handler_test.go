package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/engine"
	"live-quiz-service/internal/infra/memory"

	"github.com/gorilla/websocket"
)

func TestFullGameOverWebSocket(t *testing.T) {
	results := memory.NewResultsStore()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	eng := engine.New(engine.Config{}, quizzes, results, nil)
	handler := NewGameHandler(eng)

	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	// Host creates the game over REST.
	body, _ := json.Marshal(map[string]any{"quizId": "quiz-1", "hostId": "host-1"})
	resp, err := http.Post(server.URL+"/api/games", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created createGameResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Pin == "" || created.GameID == "" {
		t.Fatalf("expected game id and pin, got %+v", created)
	}

	wsBase := "ws" + server.URL[len("http"):]

	host, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws?role=host&gameId="+created.GameID+"&hostId=host-1", nil)
	if err != nil {
		t.Fatalf("host dial: %v", err)
	}
	defer host.Close()
	readUntil(t, host, "joined")

	player, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws?pin="+created.Pin+"&username=alice", nil)
	if err != nil {
		t.Fatalf("player dial: %v", err)
	}
	defer player.Close()
	readUntil(t, player, "joined")

	if err := host.WriteJSON(map[string]any{"type": "start"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := host.WriteJSON(map[string]any{"type": "next"}); err != nil {
		t.Fatalf("next: %v", err)
	}

	question := readUntil(t, player, "question")
	if question["question"] != "What is the capital of France?" {
		t.Fatalf("unexpected question payload: %+v", question)
	}
	if _, leaked := question["choices"]; leaked {
		t.Fatalf("answer key leaked to player: %+v", question)
	}

	if err := player.WriteJSON(map[string]any{
		"type":    "answer",
		"payload": map[string]any{"index": 0, "answer": "Paris", "timeTaken": 4000},
	}); err != nil {
		t.Fatalf("answer: %v", err)
	}

	result := readUntil(t, player, "answerResult")
	if result["right"] != true {
		t.Fatalf("expected correct answer, got %+v", result)
	}

	if err := host.WriteJSON(map[string]any{"type": "next"}); err != nil {
		t.Fatalf("finish: %v", err)
	}
	summary := readUntil(t, player, "gameFinished")
	scores, ok := summary["playerScores"].(map[string]any)
	if !ok || scores["alice"] == nil {
		t.Fatalf("expected final scores in summary, got %+v", summary)
	}

	// The finished broadcast goes out just before the results write; give
	// the write a moment to land.
	persistDeadline := time.Now().Add(2 * time.Second)
	for results.Len() != 1 {
		if time.Now().After(persistDeadline) {
			t.Fatalf("expected one persisted results record, got %d", results.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPlayerJoinRejections(t *testing.T) {
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	eng := engine.New(engine.Config{}, quizzes, memory.NewResultsStore(), nil)
	handler := NewGameHandler(eng)

	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsBase := "ws" + server.URL[len("http"):]

	conn, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws?pin=000000&username=alice", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload := readUntil(t, conn, "error")
	if payload["code"] != "not_found" {
		t.Fatalf("expected not_found for bogus pin, got %+v", payload)
	}
}

// readUntil reads messages until one of the wanted type arrives,
// tolerating interleaved broadcasts (playerJoined, leaderboard, ...).
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
	}
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Capitals",
			Questions: []domain.Question{
				{
					Prompt: "What is the capital of France?",
					Time:   20,
					Type:   domain.QuestionABCD,
					Choices: []domain.Choice{
						{Answer: "Berlin"},
						{Answer: "Paris", Right: true},
						{Answer: "Madrid"},
					},
				},
			},
		},
	}
}
