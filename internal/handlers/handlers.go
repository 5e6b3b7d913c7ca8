package handlers

import (
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/Brownie44l1/steer-bridge/internal/bridge"
	"github.com/Brownie44l1/steer-bridge/internal/model"
	"github.com/Brownie44l1/steer-bridge/internal/publish"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type Handler struct {
	predictor bridge.Predictor
	channel   *publish.Channel
	hub       *publish.Hub
	upgrader  websocket.Upgrader
}

func NewHandler(predictor bridge.Predictor, channel *publish.Channel, hub *publish.Hub) *Handler {
	return &Handler{
		predictor: predictor,
		channel:   channel,
		hub:       hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // the status page is served to local tools only
			},
		},
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", enableCORS(h.Health))
	mux.HandleFunc("/steer", enableCORS(h.Steer))
	mux.HandleFunc("/predict/image", enableCORS(h.PredictFromImage))
	mux.HandleFunc("/ws", h.Stream)
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// Steer returns the last value handed to the clipboard.
func (h *Handler) Steer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reading, ok := h.channel.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reading)
}

// PredictFromImage runs the model on an uploaded frame without publishing
// the result.
func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form (10MB max)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()

	log.Printf("Received file: %s, size: %d bytes", header.Filename, header.Size)

	img, format, err := image.Decode(file)
	if err != nil {
		http.Error(w, "Invalid image format. Supported: JPEG, PNG", http.StatusBadRequest)
		return
	}

	log.Printf("Image format: %s, dimensions: %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())

	steering, err := h.predictor.Predict(img)
	if err != nil {
		log.Printf("Prediction error: %v", err)
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.SteerResponse{
		Steering: finite(steering),
		Text:     publish.FormatSteer(steering),
	})
}

// Stream pushes every published reading to a websocket client. A client
// that falls behind only receives the newest value.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	readings, cancel := h.hub.Subscribe()
	defer cancel()

	if latest, ok := h.channel.Latest(); ok {
		if err := writeReading(conn, latest); err != nil {
			return
		}
	}

	// Drain client frames so close messages are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case reading, ok := <-readings:
			if !ok {
				return
			}
			if err := writeReading(conn, reading); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeReading(conn *websocket.Conn, reading publish.Reading) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(reading)
}
