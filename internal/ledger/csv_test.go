package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadNormalizesStatuses(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "accounts.csv")

	content := "email,password,first_name,last_name,phone_number,room1_status,room1_timestamp,room2_status,room2_timestamp,room3_status,room3_timestamp\n" +
		"a@test.com,pw1,Ann,Smith,5551234567,TRUE,2025-08-30T10:00:00,False,,false,\n" +
		"b@test.com,pw2,Bob,Jones,5559876543, true ,2025-08-29T09:30:00,yes,,,\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	accounts, err := Read(path)
	if err != nil {
		t.Fatalf("Failed to read ledger: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}

	// Mixed-case and padded "true" values normalize to played
	a := accounts[0]
	if !a.Room(1).Played {
		t.Error("Expected TRUE to read as played")
	}
	if a.Room(1).PlayedAt != "2025-08-30T10:00:00" {
		t.Errorf("Unexpected timestamp: %s", a.Room(1).PlayedAt)
	}
	if a.Room(2).Played || a.Room(3).Played {
		t.Error("Expected False/false to read as unplayed")
	}

	b := accounts[1]
	if !b.Room(1).Played {
		t.Error("Expected padded ' true ' to read as played")
	}
	// Anything other than true is unplayed
	if b.Room(2).Played {
		t.Error("Expected 'yes' to read as unplayed")
	}
}

func TestReadMissingColumns(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "partial.csv")

	// Only identity columns; room columns absent entirely
	content := "email,password,first_name,last_name,phone_number\n" +
		"a@test.com,pw,Ann,Smith,5551234567\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	accounts, err := Read(path)
	if err != nil {
		t.Fatalf("Failed to read ledger: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("Expected 1 account, got %d", len(accounts))
	}

	account := accounts[0]
	if account.Email != "a@test.com" || account.Password != "pw" {
		t.Errorf("Identity columns not read: %+v", account)
	}
	for n := 1; n <= NumRooms; n++ {
		if account.Room(n).Played {
			t.Errorf("Expected room %d unplayed when column missing", n)
		}
		if account.Room(n).PlayedAt != "" {
			t.Errorf("Expected empty timestamp for room %d, got %q", n, account.Room(n).PlayedAt)
		}
	}
}

func TestReadEmptyFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "empty.csv")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	accounts, err := Read(path)
	if err != nil {
		t.Fatalf("Failed to read empty ledger: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("Expected no accounts from empty file, got %d", len(accounts))
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("Expected error reading a missing ledger")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "out", "ledger.csv")

	playedAt := time.Date(2025, 8, 30, 14, 5, 0, 0, time.Local)
	account := &Account{
		Email:       "a@test.com",
		Password:    "secret",
		FirstName:   "Ann",
		LastName:    "Smith",
		PhoneNumber: "5551234567",
	}
	account.MarkPlayed(1, playedAt)

	if err := Write(path, []*Account{account}); err != nil {
		t.Fatalf("Failed to write ledger: %v", err)
	}

	// The staging file must not linger after rename
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Staging file left behind after write")
	}

	loaded, err := Read(path)
	if err != nil {
		t.Fatalf("Failed to re-read ledger: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("Expected 1 account, got %d", len(loaded))
	}

	got := loaded[0]
	if got.Email != account.Email || got.Password != account.Password ||
		got.FirstName != account.FirstName || got.LastName != account.LastName ||
		got.PhoneNumber != account.PhoneNumber {
		t.Errorf("Identity fields did not round-trip: %+v", got)
	}
	if !got.Room(1).Played || got.Room(1).PlayedAt != "2025-08-30T14:05:00" {
		t.Errorf("Room progress did not round-trip: %+v", got.Room(1))
	}
	if got.Room(2).Played {
		t.Error("Expected room 2 unplayed after round trip")
	}
}

func TestOutputFilename(t *testing.T) {
	cases := map[int]string{
		1: "ready_for_room2.csv",
		2: "ready_for_room3.csv",
		3: "completed_process.csv",
		0: "output.csv",
		9: "output.csv",
	}
	for room, want := range cases {
		if got := OutputFilename(room); got != want {
			t.Errorf("OutputFilename(%d) = %s, want %s", room, got, want)
		}
	}
}

func TestHighestPlayedRoom(t *testing.T) {
	account := &Account{Email: "a@test.com"}
	if account.HighestPlayedRoom() != 0 {
		t.Errorf("Expected 0 for fresh account, got %d", account.HighestPlayedRoom())
	}

	now := time.Now()
	account.MarkPlayed(1, now)
	if account.HighestPlayedRoom() != 1 {
		t.Errorf("Expected 1, got %d", account.HighestPlayedRoom())
	}
	account.MarkPlayed(3, now)
	if account.HighestPlayedRoom() != 3 {
		t.Errorf("Expected 3, got %d", account.HighestPlayedRoom())
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	valid := []string{
		"2025-08-30T14:05:00",
		"2025-08-30T14:05:00.123456",
		"2025-08-30 14:05:00",
		"2025-08-30T14:05:00Z",
		"2025-08-30T14:05:00-04:00",
	}
	for _, s := range valid {
		if _, ok := ParseTimestamp(s); !ok {
			t.Errorf("Expected %q to parse", s)
		}
	}

	invalid := []string{"", "yesterday", "30/08/2025", "2025-08-30"}
	for _, s := range invalid {
		if _, ok := ParseTimestamp(s); ok {
			t.Errorf("Expected %q not to parse", s)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	original := &Account{Email: "a@test.com"}
	clone := original.Clone()

	original.MarkPlayed(1, time.Now())
	if clone.Room(1).Played {
		t.Error("Expected clone unaffected by later mutation")
	}
}
