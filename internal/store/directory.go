package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/commerce-messaging/internal/crypto"
	"github.com/edvin/commerce-messaging/internal/model"
)

// PostgresDirectory reads organization channels, templates, customers and
// catalogues. It never writes.
type PostgresDirectory struct {
	db             DB
	credentialsKey []byte
}

func NewPostgresDirectory(db DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// WithCredentialsKey makes ChannelToken decrypt stored tokens with key.
func (d *PostgresDirectory) WithCredentialsKey(key []byte) *PostgresDirectory {
	d.credentialsKey = key
	return d
}

func (d *PostgresDirectory) ChannelConfig(ctx context.Context, orgID string) (*model.ChannelConfig, error) {
	var c model.ChannelConfig
	err := d.db.QueryRow(ctx,
		`SELECT id, org_id, provider, sender, active
		 FROM channels WHERE org_id = $1 AND active ORDER BY created_at LIMIT 1`, orgID,
	).Scan(&c.ID, &c.OrgID, &c.Provider, &c.Sender, &c.Active)
	if err != nil {
		return nil, notFound(err, "channel for org %s", orgID)
	}
	return &c, nil
}

func (d *PostgresDirectory) ChannelToken(ctx context.Context, channelID string) (string, error) {
	var token string
	err := d.db.QueryRow(ctx,
		`SELECT token FROM channel_credentials WHERE channel_id = $1`, channelID,
	).Scan(&token)
	if err != nil {
		return "", notFound(err, "credentials for channel %s", channelID)
	}
	if len(d.credentialsKey) == 0 {
		return token, nil
	}
	plain, err := crypto.Decrypt(token, d.credentialsKey)
	if err != nil {
		return "", fmt.Errorf("decrypt credentials for channel %s: %w", channelID, err)
	}
	return string(plain), nil
}

func (d *PostgresDirectory) Template(ctx context.Context, orgID, kind string) (*model.Template, error) {
	var t model.Template
	err := d.db.QueryRow(ctx,
		`SELECT id, org_id, kind, language, body
		 FROM message_templates WHERE org_id = $1 AND kind = $2`, orgID, kind,
	).Scan(&t.ID, &t.OrgID, &t.Kind, &t.Language, &t.Body)
	if err != nil {
		return nil, notFound(err, "%s template for org %s", kind, orgID)
	}
	return &t, nil
}

func (d *PostgresDirectory) Customer(ctx context.Context, orgID, customerID string) (*model.Customer, error) {
	var c model.Customer
	err := d.db.QueryRow(ctx,
		`SELECT id, name, phone, language
		 FROM customers WHERE org_id = $1 AND id = $2`, orgID, customerID,
	).Scan(&c.ID, &c.Name, &c.Phone, &c.Language)
	if err != nil {
		return nil, notFound(err, "customer %s", customerID)
	}
	return &c, nil
}

func (d *PostgresDirectory) Catalogue(ctx context.Context, orgID, catalogueID string) (*model.Catalogue, error) {
	var c model.Catalogue
	err := d.db.QueryRow(ctx,
		`SELECT id, org_id, name, url
		 FROM catalogues WHERE org_id = $1 AND id = $2`, orgID, catalogueID,
	).Scan(&c.ID, &c.OrgID, &c.Name, &c.URL)
	if err != nil {
		return nil, notFound(err, "catalogue %s", catalogueID)
	}

	rows, err := d.db.Query(ctx,
		`SELECT id, name, price, url
		 FROM catalogue_products WHERE catalogue_id = $1 ORDER BY position, id`, catalogueID)
	if err != nil {
		return nil, fmt.Errorf("list catalogue products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.URL); err != nil {
			return nil, fmt.Errorf("scan catalogue product: %w", err)
		}
		c.Products = append(c.Products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalogue products: %w", err)
	}
	return &c, nil
}

func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}
