// Package repository implements resource and resource attribute persistence.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/resource/domain"
)

const selectResource = `SELECT id, resource_type, external_id, owner_id, security_level, compartments,
		created_at, updated_at
	FROM resources`

// SQLResourceRepository persists resources, their labels and their attributes.
type SQLResourceRepository struct {
	db     *sql.DB
	driver string
}

// Create inserts a new resource. Returns ErrResourceAlreadyExists on a duplicate
// (type, external id) pair.
func (r *SQLResourceRepository) Create(ctx context.Context, resource *domain.Resource) error {
	querier := database.GetTx(ctx, r.db)

	compartments, err := marshalCompartments(resource.Label.Compartments)
	if err != nil {
		return err
	}

	var ownerID uuid.NullUUID
	if resource.OwnerID != nil {
		ownerID = uuid.NullUUID{UUID: *resource.OwnerID, Valid: true}
	}

	query := `INSERT INTO resources (id, resource_type, external_id, owner_id, security_level, compartments,
			  created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		resource.ID,
		resource.Type,
		resource.ExternalID,
		ownerID,
		string(resource.Label.Level),
		compartments,
		resource.CreatedAt,
		resource.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrResourceAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create resource")
	}

	return nil
}

// GetByID retrieves a resource by its internal id.
func (r *SQLResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, selectResource+` WHERE id = ?`), id)
	return scanResource(row)
}

// GetByRef retrieves a resource by its (type, external id) pair.
func (r *SQLResourceRepository) GetByRef(
	ctx context.Context,
	resourceType, externalID string,
) (*domain.Resource, error) {
	querier := database.GetTx(ctx, r.db)
	query := selectResource + ` WHERE resource_type = ? AND external_id = ?`
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, query), resourceType, externalID)
	return scanResource(row)
}

// List retrieves resources ordered by creation time, optionally filtered by type.
func (r *SQLResourceRepository) List(
	ctx context.Context,
	resourceType string,
	offset, limit int,
) ([]*domain.Resource, error) {
	querier := database.GetTx(ctx, r.db)

	query := selectResource
	args := make([]any, 0, 3)
	if resourceType != "" {
		query += ` WHERE resource_type = ?`
		args = append(args, resourceType)
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list resources")
	}
	defer func() {
		_ = rows.Close()
	}()

	resources := make([]*domain.Resource, 0)
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate resources")
	}

	return resources, nil
}

// UpdateLabel replaces the security label of a resource.
func (r *SQLResourceRepository) UpdateLabel(ctx context.Context, id uuid.UUID, label macDomain.Label) error {
	querier := database.GetTx(ctx, r.db)

	compartments, err := marshalCompartments(label.Compartments)
	if err != nil {
		return err
	}

	query := `UPDATE resources SET security_level = ?, compartments = ?, updated_at = ? WHERE id = ?`
	result, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		string(label.Level),
		compartments,
		database.Now(),
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update resource label")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return domain.ErrResourceNotFound
	}

	return nil
}

// ListAttributes retrieves every attribute of a resource ordered by name.
func (r *SQLResourceRepository) ListAttributes(
	ctx context.Context,
	resourceID uuid.UUID,
) ([]*domain.Attribute, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT resource_id, name, value, calculated, source, updated_at
			  FROM resource_attributes WHERE resource_id = ? ORDER BY name ASC`

	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), resourceID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list resource attributes")
	}
	defer func() {
		_ = rows.Close()
	}()

	attributes := make([]*domain.Attribute, 0)
	for rows.Next() {
		var attribute domain.Attribute
		var valueJSON []byte
		if err := rows.Scan(
			&attribute.ResourceID,
			&attribute.Name,
			&valueJSON,
			&attribute.Calculated,
			&attribute.Source,
			&attribute.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan resource attribute")
		}
		if len(valueJSON) > 0 {
			if err := json.Unmarshal(valueJSON, &attribute.Value); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal resource attribute value")
			}
		}
		attributes = append(attributes, &attribute)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate resource attributes")
	}

	return attributes, nil
}

// UpsertAttribute creates or replaces a named attribute.
func (r *SQLResourceRepository) UpsertAttribute(ctx context.Context, attribute *domain.Attribute) error {
	querier := database.GetTx(ctx, r.db)

	valueJSON, err := json.Marshal(attribute.Value)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal resource attribute value")
	}

	query := `INSERT INTO resource_attributes (resource_id, name, value, calculated, source, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?) ` + database.UpsertClause(
		r.driver,
		[]string{"resource_id", "name"},
		[]string{"value", "calculated", "source", "updated_at"},
	)

	_, err = querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		attribute.ResourceID,
		attribute.Name,
		valueJSON,
		attribute.Calculated,
		attribute.Source,
		attribute.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return domain.ErrResourceNotFound
		}
		return apperrors.Wrap(err, "failed to upsert resource attribute")
	}

	return nil
}

// DeleteAttribute removes a named attribute.
func (r *SQLResourceRepository) DeleteAttribute(ctx context.Context, resourceID uuid.UUID, name string) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM resource_attributes WHERE resource_id = ? AND name = ?`
	result, err := querier.ExecContext(ctx, database.Rebind(r.driver, query), resourceID, name)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete resource attribute")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return domain.ErrAttributeNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(row scanner) (*domain.Resource, error) {
	var resource domain.Resource
	var ownerID uuid.NullUUID
	var level string
	var compartmentsJSON []byte

	err := row.Scan(
		&resource.ID,
		&resource.Type,
		&resource.ExternalID,
		&ownerID,
		&level,
		&compartmentsJSON,
		&resource.CreatedAt,
		&resource.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrResourceNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan resource")
	}

	if ownerID.Valid {
		id := ownerID.UUID
		resource.OwnerID = &id
	}

	var compartments []string
	if len(compartmentsJSON) > 0 {
		if err := json.Unmarshal(compartmentsJSON, &compartments); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal resource compartments")
		}
	}
	resource.Label = macDomain.NewLabel(macDomain.Level(level), compartments)

	return &resource, nil
}

func marshalCompartments(compartments macDomain.Compartments) ([]byte, error) {
	if compartments == nil {
		compartments = macDomain.Compartments{}
	}
	data, err := json.Marshal(compartments)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal compartments")
	}
	return data, nil
}

// NewSQLResourceRepository creates a new resource repository for the given driver.
func NewSQLResourceRepository(db *sql.DB, driver string) *SQLResourceRepository {
	return &SQLResourceRepository{db: db, driver: driver}
}
