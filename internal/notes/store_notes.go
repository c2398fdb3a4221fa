package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const noteColumns = "id, user_id, book_id, title, type, content, image_url, page_number, is_public, tags, created_at, updated_at"

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, name, email string, admin bool) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, errors.New("create user: name and email required")
	}

	user := &User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		IsAdmin:   admin,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO users (id, name, email, is_admin, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, boolToInt(user.IsAdmin), timestamp(user.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetUser fetches an account by id. Returns nil when absent.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, is_admin, created_at FROM users WHERE id = ?`, id)
	var (
		user    User
		isAdmin int64
		created string
	)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &isAdmin, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.IsAdmin = isAdmin != 0
	user.CreatedAt = parseTimestamp(created)
	return &user, nil
}

// CreateBook inserts a new catalog entry.
func (s *Store) CreateBook(ctx context.Context, title, author, coverImageURL string) (*Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("create book: title required")
	}

	book := &Book{
		ID:            uuid.NewString(),
		Title:         title,
		Author:        strings.TrimSpace(author),
		CoverImageURL: strings.TrimSpace(coverImageURL),
		CreatedAt:     time.Now().UTC(),
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO books (id, title, author, cover_image_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		book.ID, book.Title, nullableString(book.Author), nullableString(book.CoverImageURL), timestamp(book.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	return book, nil
}

// GetBook fetches a catalog entry by id. Returns nil when absent.
func (s *Store) GetBook(ctx context.Context, id string) (*Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, author, cover_image_url, created_at FROM books WHERE id = ?`, id)
	var (
		book    Book
		author  sql.NullString
		cover   sql.NullString
		created string
	)
	err := row.Scan(&book.ID, &book.Title, &author, &cover, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	book.Author = author.String
	book.CoverImageURL = cover.String
	book.CreatedAt = parseTimestamp(created)
	return &book, nil
}

// CreateNote inserts a reading record for the given user and book.
// Tags are NFC-normalized and de-duplicated before storage.
func (s *Store) CreateNote(ctx context.Context, input NewNote) (*Note, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, errors.New("create note: user id required")
	}
	if strings.TrimSpace(input.BookID) == "" {
		return nil, errors.New("create note: book id required")
	}
	noteType, ok := ParseNoteType(string(input.Type))
	if !ok {
		return nil, fmt.Errorf("create note: unknown type %q", input.Type)
	}
	if noteType.HasImage() && strings.TrimSpace(input.ImageURL) == "" {
		return nil, fmt.Errorf("create note: type %s requires an image url", noteType)
	}

	now := time.Now().UTC()
	note := &Note{
		ID:         uuid.NewString(),
		UserID:     input.UserID,
		BookID:     input.BookID,
		Title:      strings.TrimSpace(input.Title),
		Type:       noteType,
		Content:    strings.TrimSpace(input.Content),
		ImageURL:   strings.TrimSpace(input.ImageURL),
		PageNumber: strings.TrimSpace(input.PageNumber),
		IsPublic:   input.IsPublic,
		Tags:       normalizeTags(input.Tags),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	tags, err := encodeTags(note.Tags)
	if err != nil {
		return nil, err
	}

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.UserID,
		note.BookID,
		nullableString(note.Title),
		string(note.Type),
		nullableString(note.Content),
		nullableString(note.ImageURL),
		nullableString(note.PageNumber),
		boolToInt(note.IsPublic),
		tags,
		timestamp(note.CreatedAt),
		timestamp(note.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return note, nil
}

// GetNote fetches a note by id. Returns nil when absent.
func (s *Store) GetNote(ctx context.Context, id string) (*Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// ListNotes returns notes matching the filter, newest first.
func (s *Store) ListNotes(ctx context.Context, filter NoteFilter) ([]*Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes`
	var (
		clauses []string
		args    []any
	)
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.BookID != "" {
		clauses = append(clauses, "book_id = ?")
		args = append(args, filter.BookID)
	}
	if filter.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(filter.Type))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var result []*Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		result = append(result, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return result, nil
}

// DeleteNote removes a note owned by userID. Transcriptions cascade.
func (s *Store) DeleteNote(ctx context.Context, id, userID string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// SelectEligible returns up to limit notes needing OCR: image-bearing
// photo/transcription notes whose transcription is absent, pending, or
// failed. Pending rows exist after a retry reset and must be picked back
// up, mirroring the claim guard. Oldest first so retried batches drain in
// creation order.
func (s *Store) SelectEligible(ctx context.Context, limit int) ([]*Note, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+prefixedNoteColumns("n")+`
         FROM notes n
         LEFT JOIN transcriptions t ON t.note_id = n.id
         WHERE n.image_url IS NOT NULL AND n.image_url <> ''
           AND n.type IN (?, ?)
           AND (t.id IS NULL OR t.status IN (?, ?))
         ORDER BY n.created_at ASC
         LIMIT ?`,
		string(TypePhoto), string(TypeTranscription), string(StatusPending), string(StatusFailed), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select eligible notes: %w", err)
	}
	defer rows.Close()

	var result []*Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan eligible note: %w", err)
		}
		result = append(result, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eligible notes: %w", err)
	}
	return result, nil
}

// CountEligible returns how many notes SelectEligible would consider,
// unbounded by batch size.
func (s *Store) CountEligible(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1)
         FROM notes n
         LEFT JOIN transcriptions t ON t.note_id = n.id
         WHERE n.image_url IS NOT NULL AND n.image_url <> ''
           AND n.type IN (?, ?)
           AND (t.id IS NULL OR t.status IN (?, ?))`,
		string(TypePhoto), string(TypeTranscription), string(StatusPending), string(StatusFailed),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count eligible notes: %w", err)
	}
	return count, nil
}

func scanNote(scanner interface{ Scan(dest ...any) error }) (*Note, error) {
	var (
		note     Note
		title    sql.NullString
		typeStr  string
		content  sql.NullString
		imageURL sql.NullString
		pageNum  sql.NullString
		isPublic int64
		tags     sql.NullString
		created  string
		updated  string
	)
	if err := scanner.Scan(
		&note.ID,
		&note.UserID,
		&note.BookID,
		&title,
		&typeStr,
		&content,
		&imageURL,
		&pageNum,
		&isPublic,
		&tags,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}

	note.Title = title.String
	note.Type = NoteType(typeStr)
	note.Content = content.String
	note.ImageURL = imageURL.String
	note.PageNumber = pageNum.String
	note.IsPublic = isPublic != 0
	note.Tags = decodeTags(tags)
	note.CreatedAt = parseTimestamp(created)
	note.UpdatedAt = parseTimestamp(updated)
	return &note, nil
}

func prefixedNoteColumns(alias string) string {
	cols := strings.Split(noteColumns, ", ")
	for i, col := range cols {
		cols[i] = alias + "." + col
	}
	return strings.Join(cols, ", ")
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		cleaned := norm.NFC.String(strings.TrimSpace(tag))
		if cleaned == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		result = append(result, cleaned)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
