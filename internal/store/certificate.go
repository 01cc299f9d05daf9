package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/examhall/internal/model"
)

const certificateColumns = `c.id, c.result_id, c.number, c.issued_at, c.status`

func scanCertificate(row interface{ Scan(...any) error }) (model.Certificate, error) {
	var c model.Certificate
	err := row.Scan(&c.ID, &c.ResultID, &c.Number, &c.IssuedAt, &c.Status)
	return c, err
}

// InsertCertificate stores a certificate for a result.
// It returns ErrDuplicate if the result already has one or the number is taken.
func (q *Queries) InsertCertificate(ctx context.Context, resultID int64, number string, issuedAt time.Time) (model.Certificate, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO certificates (result_id, number, issued_at, status) VALUES (?, ?, ?, ?)`,
		resultID, number, issuedAt.UTC(), model.CertificateActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Certificate{}, fmt.Errorf("certificate for result %d: %w", resultID, ErrDuplicate)
		}
		return model.Certificate{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Certificate{}, err
	}
	return model.Certificate{
		ID:       id,
		ResultID: resultID,
		Number:   number,
		IssuedAt: issuedAt.UTC(),
		Status:   model.CertificateActive,
	}, nil
}

// GetCertificateByResult returns the certificate of a result.
func (q *Queries) GetCertificateByResult(ctx context.Context, resultID int64) (model.Certificate, error) {
	c, err := scanCertificate(q.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates c WHERE c.result_id = ?`, resultID))
	return c, notFound(err)
}

// GetCertificateByNumber returns a certificate by its number.
func (q *Queries) GetCertificateByNumber(ctx context.Context, number string) (model.Certificate, error) {
	c, err := scanCertificate(q.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates c WHERE c.number = ?`, number))
	return c, notFound(err)
}

// SetCertificateStatus changes the status of a certificate.
func (q *Queries) SetCertificateStatus(ctx context.Context, id int64, status model.CertificateStatus) error {
	res, err := q.db.ExecContext(ctx, `UPDATE certificates SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}
