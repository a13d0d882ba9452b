package store

import (
	"context"
	"fmt"

	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/google/uuid"
)

const fileMetaColumns = `id, room_id, name, language, COALESCE(updated_by::text, ''), last_modified`

func scanFileMeta(row rowScanner) (*types.File, error) {
	f := new(types.File)
	if err := row.Scan(&f.ID, &f.RoomID, &f.Name, &f.Language, &f.UpdatedBy, &f.LastModified); err != nil {
		return nil, err
	}
	return f, nil
}

// CreateFile locks the room row so the file limit and the FileIDs list stay
// consistent with the files table.
func (s *store) CreateFile(ctx context.Context, file *types.File, maxFiles int) (*types.File, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, `SELECT cardinality(file_ids) FROM rooms WHERE id = $1 FOR UPDATE`, file.RoomID).Scan(&count)
	if err != nil {
		if notFound(err, types.ErrRoomNotFound) {
			return nil, types.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to lock room: %w", err)
	}
	if count >= maxFiles {
		return nil, types.ErrTooManyFiles
	}

	file.ID = uuid.New().String()
	query := `INSERT INTO files (id, room_id, name, language, content, updated_by)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING last_modified`
	err = tx.QueryRowContext(ctx, query, file.ID, file.RoomID, file.Name, file.Language, file.Content, nullString(file.UpdatedBy)).
		Scan(&file.LastModified)
	if err != nil {
		switch pqCode(err) {
		case uniqueViolation:
			return nil, types.ErrFileExists
		case foreignKeyMissing:
			return nil, types.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE rooms SET file_ids = array_append(file_ids, $2::uuid), updated_at = now() WHERE id = $1`,
		file.RoomID, file.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to attach file to room: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit file creation: %w", err)
	}
	return file, nil
}

func (s *store) GetFile(ctx context.Context, roomID, fileID string) (*types.File, error) {
	f := new(types.File)
	query := `SELECT id, room_id, name, language, content, COALESCE(updated_by::text, ''), last_modified
	          FROM files WHERE id = $1 AND room_id = $2`

	err := s.db.QueryRowContext(ctx, query, fileID, roomID).
		Scan(&f.ID, &f.RoomID, &f.Name, &f.Language, &f.Content, &f.UpdatedBy, &f.LastModified)
	if err != nil {
		if notFound(err, types.ErrFileNotFound) {
			return nil, types.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

func (s *store) ListFiles(ctx context.Context, roomID string) ([]*types.File, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileMetaColumns+` FROM files WHERE room_id = $1 ORDER BY name`, roomID)
	if err != nil {
		if pqCode(err) == invalidTextRepr {
			return []*types.File{}, nil
		}
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	files := []*types.File{}
	for rows.Next() {
		f, err := scanFileMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// SaveContent persists content with the edit time carried by file.
func (s *store) SaveContent(ctx context.Context, file *types.File) error {
	query := `UPDATE files SET content = $2, updated_by = $3, last_modified = $4 WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, file.ID, file.Content, nullString(file.UpdatedBy), file.LastModified)
	if err != nil {
		if pqCode(err) == invalidTextRepr {
			return types.ErrFileNotFound
		}
		return fmt.Errorf("failed to save file content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrFileNotFound
	}
	return nil
}

func (s *store) RenameFile(ctx context.Context, file *types.File) (*types.File, error) {
	query := `UPDATE files SET name = $3, language = $4
	          WHERE id = $1 AND room_id = $2 RETURNING ` + fileMetaColumns

	updated, err := scanFileMeta(s.db.QueryRowContext(ctx, query, file.ID, file.RoomID, file.Name, file.Language))
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return nil, types.ErrFileExists
		}
		if notFound(err, types.ErrFileNotFound) {
			return nil, types.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to rename file: %w", err)
	}
	return updated, nil
}

func (s *store) DeleteFile(ctx context.Context, roomID, fileID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = $1 AND room_id = $2`, fileID, roomID)
	if err != nil {
		if pqCode(err) == invalidTextRepr {
			return types.ErrFileNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrFileNotFound
	}

	_, err = tx.ExecContext(ctx, `UPDATE rooms SET file_ids = array_remove(file_ids, $2::uuid), updated_at = now() WHERE id = $1`,
		roomID, fileID)
	if err != nil {
		return fmt.Errorf("failed to detach file from room: %w", err)
	}

	return tx.Commit()
}

