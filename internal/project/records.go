package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"timeliner/internal/ges"
	"timeliner/internal/logging"
)

const recordColumns = "id, type, media_type, start_ns, inpoint_ns, duration_ns, video_track, audio_track, fields_json"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (ges.Record, error) {
	var (
		rec        ges.Record
		mediaType  string
		start      int64
		inpoint    int64
		duration   int64
		fieldsJSON sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.Type,
		&mediaType,
		&start,
		&inpoint,
		&duration,
		&rec.VideoTrack,
		&rec.AudioTrack,
		&fieldsJSON,
	); err != nil {
		return ges.Record{}, err
	}
	mt, err := ges.ParseMediaType(mediaType)
	if err != nil {
		return ges.Record{}, fmt.Errorf("object %s: %w", rec.ID, err)
	}
	rec.MediaType = mt
	rec.Start = time.Duration(start)
	rec.Inpoint = time.Duration(inpoint)
	rec.Duration = time.Duration(duration)
	if fieldsJSON.Valid && fieldsJSON.String != "" {
		if err := json.Unmarshal([]byte(fieldsJSON.String), &rec.Fields); err != nil {
			return ges.Record{}, fmt.Errorf("object %s fields: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func recordArgs(rec ges.Record) ([]any, error) {
	fields := rec.Fields
	if fields == nil {
		fields = []string{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	return []any{
		rec.ID,
		rec.Type,
		rec.MediaType.String(),
		int64(rec.Start),
		int64(rec.Inpoint),
		int64(rec.Duration),
		rec.VideoTrack,
		rec.AudioTrack,
		string(fieldsJSON),
	}, nil
}

// PutRecord inserts or replaces one object. New objects are appended after
// every existing one; replaced objects keep their position.
func (s *Store) PutRecord(ctx context.Context, rec ges.Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("put %s: empty object id", rec.Type)
	}
	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	_, err = s.execWithRetry(ctx,
		`INSERT INTO objects (`+recordColumns+`, position)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM objects))
         ON CONFLICT(id) DO UPDATE SET
            type = excluded.type,
            media_type = excluded.media_type,
            start_ns = excluded.start_ns,
            inpoint_ns = excluded.inpoint_ns,
            duration_ns = excluded.duration_ns,
            video_track = excluded.video_track,
            audio_track = excluded.audio_track,
            fields_json = excluded.fields_json`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("put object %s: %w", rec.ID, err)
	}
	if err := s.touch(ensureContext(ctx), s.db); err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	s.logger.Debug("object stored",
		logging.String(logging.FieldObjectID, rec.ID),
		logging.String("kind", rec.Type),
	)
	return nil
}

// Records returns every stored object in insertion order.
func (s *Store) Records(ctx context.Context) ([]ges.Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+recordColumns+" FROM objects ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	var records []ges.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	return records, nil
}

// Record finds one object by full id or unique id prefix.
func (s *Store) Record(ctx context.Context, id string) (ges.Record, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return ges.Record{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+recordColumns+" FROM objects WHERE substr(id, 1, ?) = ? ORDER BY position LIMIT 2",
		len(id), id)
	if err != nil {
		return ges.Record{}, fmt.Errorf("find object %s: %w", id, err)
	}
	defer rows.Close()

	var matches []ges.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return ges.Record{}, err
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return ges.Record{}, fmt.Errorf("find object %s: %w", id, err)
	}
	switch len(matches) {
	case 0:
		return ges.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	}
	for _, rec := range matches {
		if rec.ID == id {
			return rec, nil
		}
	}
	return ges.Record{}, fmt.Errorf("%w: %s", ErrAmbiguous, id)
}

// DeleteRecord removes the object with the given full id.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM objects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete object %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete object %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.touch(ensureContext(ctx), s.db); err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	s.logger.Debug("object deleted", logging.String(logging.FieldObjectID, id))
	return nil
}
