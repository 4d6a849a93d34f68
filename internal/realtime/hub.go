// Package realtime diffuse les changements de commande via Redis pub/sub
// vers les clients websocket qui suivent une commande.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"vastra_back_end/internal/models"
)

const pingInterval = 30 * time.Second

// Publisher est notifié après chaque écriture de commande.
type Publisher interface {
	OrderChanged(ctx context.Context, order models.Order)
}

func channel(orderID string) string {
	return "order:" + orderID
}

type Hub struct {
	rdb      *redis.Client
	upgrader websocket.Upgrader
}

func NewHub(rdb *redis.Client, allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		rdb: rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// OrderChanged publie la commande sur son canal.
func (h *Hub) OrderChanged(ctx context.Context, order models.Order) {
	data, err := json.Marshal(order)
	if err != nil {
		log.Printf("❌ Erreur encodage commande %s: %v", order.ID, err)
		return
	}
	if err := h.rdb.Publish(ctx, channel(order.ID), data).Err(); err != nil {
		log.Printf("⚠️ Erreur publication commande %s: %v", order.ID, err)
	}
}

// Subscribe retourne les messages publiés pour une commande jusqu'à
// l'annulation de ctx.
func (h *Hub) Subscribe(ctx context.Context, orderID string) (<-chan []byte, func()) {
	pubsub := h.rdb.Subscribe(ctx, channel(orderID))
	out := make(chan []byte)
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, func() { _ = pubsub.Close() }
}

// Serve passe la requête en websocket, envoie l'état courant de la
// commande puis chaque mise à jour publiée.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, current models.Order) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, closeSub := h.Subscribe(ctx, current.ID)
	defer closeSub()

	// lecture en tâche de fond pour détecter la fermeture côté client
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(current); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// NopPublisher ignore les changements ; utilisé quand Redis pub/sub n'est
// pas câblé (tests, outils).
type NopPublisher struct{}

func (NopPublisher) OrderChanged(context.Context, models.Order) {}
