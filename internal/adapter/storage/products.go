package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopworks/e-shop/internal/core/domain"
	"github.com/shopworks/e-shop/internal/core/port"
)

var _ port.ProductImagesStorage = (*ProductImagesRepository)(nil)

// ProductImagesRepository persists the image-path columns of the
// products table. thumbnail_path is mutated only through
// UpdateThumbnailPath; the CRUD update path must not touch it, or it
// would race with in-flight processing jobs.
type ProductImagesRepository struct {
	sqldb sqldb
}

func NewProductImagesRepository(sqldb sqldb) ProductImagesRepository {
	return ProductImagesRepository{sqldb}
}

func (r ProductImagesRepository) ReadImagePaths(
	ctx context.Context, productID string,
) (domain.ProductImagePaths, error) {
	const op = "ProductImagesRepository.ReadImagePaths"

	if err := ctx.Err(); err != nil {
		return domain.ProductImagePaths{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT id, COALESCE(image_path, ''), COALESCE(thumbnail_path, '')
		FROM products
		WHERE id = $1;`

	var v domain.ProductImagePaths
	err := r.sqldb.QueryRowContext(ctx, query, productID).Scan(
		&v.ProductID, &v.ImagePath, &v.ThumbnailPath,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProductImagePaths{}, fmt.Errorf(
				"%s: %w", op, domain.ErrProductNotFound,
			)
		}
		return domain.ProductImagePaths{}, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func (r ProductImagesRepository) SetImagePath(
	ctx context.Context, productID, imagePath string,
) error {
	const op = "ProductImagesRepository.SetImagePath"

	query := `UPDATE products SET image_path = $2 WHERE id = $1;`
	return r.update(ctx, op, query, productID, imagePath)
}

func (r ProductImagesRepository) UpdateThumbnailPath(
	ctx context.Context, productID, thumbnailPath string,
) error {
	const op = "ProductImagesRepository.UpdateThumbnailPath"

	query := `UPDATE products SET thumbnail_path = $2 WHERE id = $1;`
	return r.update(ctx, op, query, productID, thumbnailPath)
}

func (r ProductImagesRepository) update(
	ctx context.Context, op, query string, args ...any,
) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := r.sqldb.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrProductNotFound)
	}
	return nil
}
