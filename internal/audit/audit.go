// Package audit écrit le journal des actions sensibles dans la table
// ScyllaDB audit_logs.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/gocql/gocql"

	"vastra_back_end/internal/models"
)

// Actions d'audit prédéfinies
const (
	ActionProductCreate = "product.create"
	ActionProductUpdate = "product.update"
	ActionProductDelete = "product.delete"
	ActionStockUpdate   = "stock.update"

	ActionOrderCreate   = "order.create"
	ActionOrderStatus   = "order.status"
	ActionOrderCancel   = "order.cancel"
	ActionOrderExpire   = "order.expire"
	ActionOrderRefund   = "order.refund"
	ActionPaymentVerify = "payment.verify"
	ActionPaymentFailed = "payment.failed"

	ActionLoginSuccess = "auth.login_success"
	ActionLoginFailed  = "auth.login_failed"
	ActionUserCreate   = "user.create"

	ActionAdminRequest = "admin.request"
)

// Resources d'audit
const (
	ResourceProduct = "product"
	ResourceOrder   = "order"
	ResourceUser    = "user"
	ResourceAuth    = "auth"
	ResourceAdmin   = "admin"
)

const schema = `CREATE TABLE IF NOT EXISTS audit_logs (
	id timeuuid PRIMARY KEY,
	user_id text,
	action text,
	resource text,
	resource_id text,
	detail text,
	ip_address text,
	success boolean,
	error_msg text,
	timestamp timestamp
)`

const insertQuery = `
	INSERT INTO audit_logs (
		id, user_id, action, resource, resource_id, detail,
		ip_address, success, error_msg, timestamp
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Recorder reçoit les entrées d'audit. Les services n'attendent jamais
// l'écriture.
type Recorder interface {
	Record(entry models.AuditLog)
}

type ScyllaRecorder struct {
	session *gocql.Session
	timeout time.Duration
}

func NewScyllaRecorder(session *gocql.Session) *ScyllaRecorder {
	return &ScyllaRecorder{session: session, timeout: 5 * time.Second}
}

// EnsureSchema crée la table si elle n'existe pas encore.
func (r *ScyllaRecorder) EnsureSchema() error {
	return r.session.Query(schema).Exec()
}

// Record enregistre l'entrée de façon asynchrone.
func (r *ScyllaRecorder) Record(entry models.AuditLog) {
	if entry.ID == (gocql.UUID{}) {
		entry.ID = gocql.TimeUUID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.write(ctx, entry); err != nil {
			log.Printf("❌ Erreur enregistrement log audit %s: %v", entry.Action, err)
		}
	}()
}

func (r *ScyllaRecorder) write(ctx context.Context, e models.AuditLog) error {
	return r.session.Query(insertQuery,
		e.ID, e.UserID, e.Action, e.Resource, e.ResourceID, e.Detail,
		e.IPAddress, e.Success, e.ErrorMsg, e.Timestamp,
	).WithContext(ctx).Exec()
}

// Recent lit les dernières entrées, pour l'écran d'administration.
func (r *ScyllaRecorder) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	iter := r.session.Query(`SELECT id, user_id, action, resource, resource_id, detail,
		ip_address, success, error_msg, timestamp FROM audit_logs LIMIT ?`, limit).WithContext(ctx).Iter()

	var (
		out []models.AuditLog
		e   models.AuditLog
	)
	for iter.Scan(&e.ID, &e.UserID, &e.Action, &e.Resource, &e.ResourceID, &e.Detail,
		&e.IPAddress, &e.Success, &e.ErrorMsg, &e.Timestamp) {
		out = append(out, e)
		e = models.AuditLog{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

// LogRecorder remplace Scylla quand il n'est pas configuré.
type LogRecorder struct{}

func (LogRecorder) Record(e models.AuditLog) {
	log.Printf("📝 audit %s %s/%s user=%s success=%v %s", e.Action, e.Resource, e.ResourceID, e.UserID, e.Success, e.ErrorMsg)
}

// Memory garde les entrées en mémoire ; utilisé par les tests.
type Memory struct {
	ch chan models.AuditLog
}

func NewMemory() *Memory {
	return &Memory{ch: make(chan models.AuditLog, 256)}
}

func (m *Memory) Record(e models.AuditLog) {
	select {
	case m.ch <- e:
	default:
	}
}

// Drain retourne les entrées reçues jusqu'ici.
func (m *Memory) Drain() []models.AuditLog {
	var out []models.AuditLog
	for {
		select {
		case e := <-m.ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
