package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	pkgErrors "github.com/pkg/errors"
	"gopkg.in/guregu/null.v3"
)

var (
	ErrNotFound = errors.New("not found")
)

type RecordKind string

const (
	RecordKindRestoration RecordKind = "restoration"
	RecordKindPoem        RecordKind = "poem"
	RecordKindImage       RecordKind = "image"
)

type RecordStatus string

const (
	RecordStatusProcessing RecordStatus = "processing"
	RecordStatusSuccess    RecordStatus = "success"
	RecordStatusFailed     RecordStatus = "failed"
)

// Record 创作记录
type Record struct {
	ID        int64           `json:"id"`
	UserKey   string          `json:"user_key,omitempty"`
	Kind      RecordKind      `json:"kind"`
	Status    RecordStatus    `json:"status"`
	Prompt    string          `json:"prompt,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type RecordCreate struct {
	UserKey string
	Kind    RecordKind
	Prompt  string
	Payload any
}

type RecordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Create 创建一条处理中的记录
func (r *RecordRepo) Create(ctx context.Context, rec RecordCreate) (int64, error) {
	payload, err := EncodeJSON(rec.Payload)
	if err != nil {
		return 0, pkgErrors.Wrap(err, "encode payload failed")
	}

	res, err := r.db.ExecContext(
		ctx,
		"INSERT INTO festival_record (user_key, kind, status, prompt, payload) VALUES (?, ?, ?, ?, ?)",
		null.NewString(rec.UserKey, rec.UserKey != ""),
		string(rec.Kind),
		string(RecordStatusProcessing),
		rec.Prompt,
		payload,
	)
	if err != nil {
		return 0, pkgErrors.Wrap(err, "create record failed")
	}

	return res.LastInsertId()
}

// MarkSuccess 标记记录处理成功，result 以 JSON 格式保存
func (r *RecordRepo) MarkSuccess(ctx context.Context, id int64, result any) error {
	data, err := EncodeJSON(result)
	if err != nil {
		return pkgErrors.Wrap(err, "encode result failed")
	}

	return r.update(ctx, id, RecordStatusSuccess, data, null.String{})
}

// MarkFailed 标记记录处理失败
func (r *RecordRepo) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.update(ctx, id, RecordStatusFailed, null.String{}, null.StringFrom(reason))
}

func (r *RecordRepo) update(ctx context.Context, id int64, status RecordStatus, result null.String, reason null.String) error {
	res, err := r.db.ExecContext(
		ctx,
		"UPDATE festival_record SET status = ?, result = ?, error = ? WHERE id = ?",
		string(status),
		result,
		reason,
		id,
	)
	if err != nil {
		return pkgErrors.Wrapf(err, "update record %d failed", id)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return pkgErrors.Wrap(err, "read affected rows failed")
	}

	// MySQL 在值未变化时返回 0，这里只用于判断记录不存在
	if affected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

// Get 查询记录
func (r *RecordRepo) Get(ctx context.Context, id int64) (*Record, error) {
	var (
		rec     Record
		userKey null.String
		payload null.String
		result  null.String
		reason  null.String
		kind    string
		status  string
	)

	err := r.db.QueryRowContext(
		ctx,
		"SELECT id, user_key, kind, status, prompt, payload, result, error, created_at, updated_at FROM festival_record WHERE id = ?",
		id,
	).Scan(&rec.ID, &userKey, &kind, &status, &rec.Prompt, &payload, &result, &reason, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, pkgErrors.Wrapf(err, "query record %d failed", id)
	}

	rec.UserKey = userKey.String
	rec.Kind = RecordKind(kind)
	rec.Status = RecordStatus(status)
	rec.Error = reason.String
	if payload.Valid && payload.String != "" {
		rec.Payload = json.RawMessage(payload.String)
	}
	if result.Valid && result.String != "" {
		rec.Result = json.RawMessage(result.String)
	}

	return &rec, nil
}

// EncodeJSON nil 值编码为 NULL
func EncodeJSON(v any) (null.String, error) {
	if v == nil {
		return null.String{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return null.String{}, err
	}

	return null.StringFrom(string(data)), nil
}
