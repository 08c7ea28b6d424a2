package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"bndy-backend/pkg/models"
)

// PostgresDatabase is the Aurora/PostgreSQL storage backend.
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase opens a PostgreSQL connection, trying a few DSN
// parameter strategies to cope with serverless networking quirks.
func NewPostgresDatabase(dsn string) DatabaseInterface {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "prefer_simple_protocol=true"),
		addConnectionParams(dsn, "prefer_simple_protocol=true&connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&prefer_simple_protocol=true"),
		dsn,
	}

	var db *sql.DB
	var err error

	for i, strategy := range strategies {
		fmt.Printf("🔄 Trying connection strategy %d...\n", i+1)

		db, err = sql.Open("postgres", strategy)
		if err != nil {
			fmt.Printf("❌ Strategy %d failed to open: %v\n", i+1, err)
			continue
		}

		// Pool limits suited to a serverless environment
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err = db.Ping(); err != nil {
			fmt.Printf("❌ Strategy %d failed to ping: %v\n", i+1, err)
			db.Close()
			continue
		}

		fmt.Printf("✅ PostgreSQL connection established with strategy %d\n", i+1)
		return &PostgresDatabase{db: db}
	}

	panic(fmt.Sprintf("Failed to connect to PostgreSQL with all strategies. Last error: %v", err))
}

func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + params
}

// ==== Users ====

// UpsertUser inserts or refreshes the local mirror of a provider subject.
func (db *PostgresDatabase) UpsertUser(user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, avatar, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			avatar = COALESCE(NULLIF(EXCLUDED.avatar, ''), users.avatar),
			updated_at = NOW()
		RETURNING created_at, updated_at`
	return db.db.QueryRow(query, user.ID, user.Email, user.Name, user.Avatar).
		Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (db *PostgresDatabase) GetUserByID(id string) (*models.User, error) {
	var u models.User
	var name, avatar sql.NullString
	query := `SELECT id, email, name, avatar, created_at, updated_at FROM users WHERE id = $1`
	err := db.db.QueryRow(query, id).Scan(&u.ID, &u.Email, &name, &avatar, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, err
	}
	u.Name = name.String
	u.Avatar = avatar.String
	return &u, nil
}

// ==== Artists ====

func (db *PostgresDatabase) CreateArtist(artist *models.Artist) error {
	if artist.ID == "" {
		artist.ID = uuid.New().String()
	}
	query := `
		INSERT INTO artists (id, name, owner_id, location, bio, avatar, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at`
	return db.db.QueryRow(query, artist.ID, artist.Name, artist.OwnerID,
		artist.Location, artist.Bio, artist.Avatar, artist.Color).
		Scan(&artist.CreatedAt, &artist.UpdatedAt)
}

func (db *PostgresDatabase) GetArtist(id string) (*models.Artist, error) {
	var a models.Artist
	var location, bio, avatar, color sql.NullString
	query := `SELECT id, name, owner_id, location, bio, avatar, color, created_at, updated_at
		FROM artists WHERE id = $1`
	err := db.db.QueryRow(query, id).Scan(&a.ID, &a.Name, &a.OwnerID,
		&location, &bio, &avatar, &color, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("artist not found")
	}
	if err != nil {
		return nil, err
	}
	a.Location = location.String
	a.Bio = bio.String
	a.Avatar = avatar.String
	a.Color = color.String
	return &a, nil
}

func (db *PostgresDatabase) UpdateArtist(artist *models.Artist) error {
	query := `
		UPDATE artists SET name = $2, location = $3, bio = $4, avatar = $5, color = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := db.db.QueryRow(query, artist.ID, artist.Name, artist.Location,
		artist.Bio, artist.Avatar, artist.Color).Scan(&artist.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("artist not found")
	}
	return err
}

// ==== Memberships ====

func (db *PostgresDatabase) AddMembership(m *models.Membership) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = models.MembershipActive
	}
	query := `
		INSERT INTO memberships (id, artist_id, user_id, role, display_name, icon, color, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at`
	return db.db.QueryRow(query, m.ID, m.ArtistID, m.UserID, m.Role,
		m.DisplayName, m.Icon, m.Color, m.Status).Scan(&m.CreatedAt)
}

const membershipColumns = `id, artist_id, user_id, role, display_name, icon, color, status, created_at`

func scanMembership(row interface{ Scan(...interface{}) error }) (*models.Membership, error) {
	var m models.Membership
	var displayName, icon, color sql.NullString
	err := row.Scan(&m.ID, &m.ArtistID, &m.UserID, &m.Role,
		&displayName, &icon, &color, &m.Status, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.DisplayName = displayName.String
	m.Icon = icon.String
	m.Color = color.String
	return &m, nil
}

func (db *PostgresDatabase) GetMembership(artistID, userID string) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE artist_id = $1 AND user_id = $2`
	m, err := scanMembership(db.db.QueryRow(query, artistID, userID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("membership not found")
	}
	return m, err
}

func (db *PostgresDatabase) GetMembershipByID(id string) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id = $1`
	m, err := scanMembership(db.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("membership not found")
	}
	return m, err
}

func (db *PostgresDatabase) ListArtistMembers(artistID string) ([]models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE artist_id = $1 ORDER BY created_at`
	rows, err := db.db.Query(query, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (db *PostgresDatabase) ListUserMemberships(userID string) ([]models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id = $1 ORDER BY created_at`
	rows, err := db.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := []models.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, *m)
	}
	return memberships, rows.Err()
}

// ==== Invitations ====

func (db *PostgresDatabase) CreateInvitation(inv *models.ArtistInvitation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO artist_invitations (id, artist_id, email, inviter_id, token, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at`
	return db.db.QueryRow(query, inv.ID, inv.ArtistID, inv.Email, inv.InviterID,
		inv.Token, inv.Status, inv.ExpiresAt).Scan(&inv.CreatedAt)
}

func (db *PostgresDatabase) GetInvitationByToken(token string) (*models.ArtistInvitation, error) {
	var inv models.ArtistInvitation
	query := `SELECT id, artist_id, email, inviter_id, token, status, expires_at, created_at
		FROM artist_invitations WHERE token = $1`
	err := db.db.QueryRow(query, token).Scan(&inv.ID, &inv.ArtistID, &inv.Email,
		&inv.InviterID, &inv.Token, &inv.Status, &inv.ExpiresAt, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invitation not found")
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (db *PostgresDatabase) UpdateInvitation(inv *models.ArtistInvitation) error {
	query := `UPDATE artist_invitations SET status = $2 WHERE id = $1`
	_, err := db.db.Exec(query, inv.ID, inv.Status)
	return err
}

// ==== Events ====

const eventColumns = `id, artist_id, type, title, date, end_date, start_time, end_time,
	location, notes, is_public, membership_id, user_id,
	recurrence_frequency, recurrence_interval, recurrence_end_date, recurrence_count, recurrence_days,
	created_at, updated_at`

func (db *PostgresDatabase) CreateEvent(ev *models.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	freq, interval, endDate, count, days := recurrenceColumns(ev.Recurrence)
	query := `
		INSERT INTO events (id, artist_id, type, title, date, end_date, start_time, end_time,
			location, notes, is_public, membership_id, user_id,
			recurrence_frequency, recurrence_interval, recurrence_end_date, recurrence_count, recurrence_days,
			created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5::date, NULLIF($6, '')::date, NULLIF($7, ''), NULLIF($8, ''),
			$9, $10, $11, NULLIF($12, ''), NULLIF($13, ''),
			$14, $15, $16, $17, $18,
			NOW(), NOW())
		RETURNING created_at, updated_at`
	return db.db.QueryRow(query, ev.ID, ev.ArtistID, ev.Type, ev.Title, ev.Date, ev.EndDate,
		ev.StartTime, ev.EndTime, ev.Location, ev.Notes, ev.IsPublic, ev.MembershipID, ev.UserID,
		freq, interval, endDate, count, days).Scan(&ev.CreatedAt, &ev.UpdatedAt)
}

func (db *PostgresDatabase) GetEvent(id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	ev, err := scanEvent(db.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("event not found")
	}
	return ev, err
}

func (db *PostgresDatabase) UpdateEvent(ev *models.Event) error {
	freq, interval, endDate, count, days := recurrenceColumns(ev.Recurrence)
	query := `
		UPDATE events SET type = $2, title = $3, date = $4::date, end_date = NULLIF($5, '')::date,
			start_time = NULLIF($6, ''), end_time = NULLIF($7, ''), location = $8, notes = $9,
			is_public = $10,
			recurrence_frequency = $11, recurrence_interval = $12, recurrence_end_date = $13,
			recurrence_count = $14, recurrence_days = $15,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := db.db.QueryRow(query, ev.ID, ev.Type, ev.Title, ev.Date, ev.EndDate,
		ev.StartTime, ev.EndTime, ev.Location, ev.Notes, ev.IsPublic,
		freq, interval, endDate, count, days).Scan(&ev.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("event not found")
	}
	return err
}

func (db *PostgresDatabase) DeleteEvent(id string) error {
	result, err := db.db.Exec(`DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("event not found")
	}
	return nil
}

// rangeCondition matches events whose own span touches the window, plus
// recurring events anchored before the window that may recur into it.
const rangeCondition = `date <= $3::date AND (
	COALESCE(end_date, date) >= $2::date
	OR (recurrence_frequency IS NOT NULL
		AND (recurrence_end_date IS NULL OR recurrence_end_date >= $2::date))
)`

// qualifyEventColumns prefixes every event column with a table alias for
// joined queries where created_at/updated_at would be ambiguous.
func qualifyEventColumns(alias string) string {
	cols := strings.Split(eventColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func qualifyRangeCondition(alias string) string {
	return fmt.Sprintf(`%[1]s.date <= $3::date AND (
		COALESCE(%[1]s.end_date, %[1]s.date) >= $2::date
		OR (%[1]s.recurrence_frequency IS NOT NULL
			AND (%[1]s.recurrence_end_date IS NULL OR %[1]s.recurrence_end_date >= $2::date))
	)`, alias)
}

func (db *PostgresDatabase) ListArtistEvents(artistID, startDate, endDate string) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE artist_id = $1 AND ` + rangeCondition + ` ORDER BY date, start_time NULLS FIRST`
	return db.queryEvents(query, artistID, startDate, endDate)
}

func (db *PostgresDatabase) ListUserEvents(userID, startDate, endDate string) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE artist_id IS NULL
		AND (user_id = $1 OR membership_id IN (SELECT id FROM memberships WHERE user_id = $1))
		AND ` + rangeCondition + ` ORDER BY date, start_time NULLS FIRST`
	return db.queryEvents(query, userID, startDate, endDate)
}

func (db *PostgresDatabase) ListCrossArtistEvents(userID, excludeArtistID, startDate, endDate string) ([]models.CrossArtistEvent, error) {
	query := `SELECT ` + qualifyEventColumns("e") + `, a.name FROM events e
		JOIN artists a ON a.id = e.artist_id
		WHERE e.artist_id IN (
			SELECT artist_id FROM memberships WHERE user_id = $1 AND artist_id <> $4
		) AND ` + qualifyRangeCondition("e") + ` ORDER BY e.date, e.start_time NULLS FIRST`
	rows, err := db.db.Query(query, userID, startDate, endDate, excludeArtistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.CrossArtistEvent{}
	for rows.Next() {
		ev, artistName, err := scanCrossArtistEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, models.CrossArtistEvent{Event: *ev, ArtistName: artistName})
	}
	return events, rows.Err()
}

func (db *PostgresDatabase) queryEvents(query string, args ...interface{}) ([]models.Event, error) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// ==== Scan helpers ====

// eventRow holds the nullable raw columns of one events row.
type eventRow struct {
	artistID, title, startTime, endTime   sql.NullString
	location, notes, membershipID, userID sql.NullString
	date                                  time.Time
	endDate                               sql.NullTime
	recFreq, recDays                      sql.NullString
	recInterval, recCount                 sql.NullInt64
	recEndDate                            sql.NullTime
}

func (r *eventRow) dest(ev *models.Event) []interface{} {
	return []interface{}{
		&ev.ID, &r.artistID, &ev.Type, &r.title, &r.date, &r.endDate,
		&r.startTime, &r.endTime, &r.location, &r.notes, &ev.IsPublic,
		&r.membershipID, &r.userID,
		&r.recFreq, &r.recInterval, &r.recEndDate, &r.recCount, &r.recDays,
		&ev.CreatedAt, &ev.UpdatedAt,
	}
}

func (r *eventRow) apply(ev *models.Event) {
	ev.ArtistID = r.artistID.String
	ev.Title = r.title.String
	ev.Date = models.FormatDate(r.date)
	if r.endDate.Valid {
		ev.EndDate = models.FormatDate(r.endDate.Time)
	}
	ev.StartTime = r.startTime.String
	ev.EndTime = r.endTime.String
	ev.Location = r.location.String
	ev.Notes = r.notes.String
	ev.MembershipID = r.membershipID.String
	ev.UserID = r.userID.String
	if r.recFreq.Valid {
		rule := &models.RecurrenceRule{
			Frequency: models.Frequency(r.recFreq.String),
			Interval:  int(r.recInterval.Int64),
			Count:     int(r.recCount.Int64),
		}
		if r.recEndDate.Valid {
			rule.EndDate = models.FormatDate(r.recEndDate.Time)
		}
		rule.Weekdays = decodeWeekdays(r.recDays.String)
		rule.Normalize()
		ev.Recurrence = rule
	}
}

func scanEvent(row interface{ Scan(...interface{}) error }) (*models.Event, error) {
	var ev models.Event
	var raw eventRow
	if err := row.Scan(raw.dest(&ev)...); err != nil {
		return nil, err
	}
	raw.apply(&ev)
	return &ev, nil
}

func scanCrossArtistEvent(row interface{ Scan(...interface{}) error }) (*models.Event, string, error) {
	var ev models.Event
	var raw eventRow
	var artistName string
	dest := append(raw.dest(&ev), &artistName)
	if err := row.Scan(dest...); err != nil {
		return nil, "", err
	}
	raw.apply(&ev)
	return &ev, artistName, nil
}

// recurrenceColumns flattens an optional rule into the events table's
// nullable recurrence columns.
func recurrenceColumns(rule *models.RecurrenceRule) (freq, interval, endDate, count, days interface{}) {
	if rule == nil {
		return nil, nil, nil, nil, nil
	}
	if rule.EndDate != "" {
		endDate = rule.EndDate
	}
	if len(rule.Weekdays) > 0 {
		days = encodeWeekdays(rule.Weekdays)
	}
	return string(rule.Frequency), rule.Interval, endDate, rule.Count, days
}

func encodeWeekdays(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(s string) []time.Weekday {
	if s == "" {
		return nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			days = append(days, time.Weekday(n))
		}
	}
	return days
}

// ==== Health ====

func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
