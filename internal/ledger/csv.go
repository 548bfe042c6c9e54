package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FieldNames is the stable ledger column set, in write order.
var FieldNames = []string{
	"email",
	"password",
	"first_name",
	"last_name",
	"phone_number",
	"room1_status",
	"room1_timestamp",
	"room2_status",
	"room2_timestamp",
	"room3_status",
	"room3_timestamp",
}

// Read loads a ledger CSV and returns one account per row. Status columns are
// normalized to lowercase booleans on read; columns missing from the header
// default to empty strings and "false" statuses.
func Read(path string) ([]*Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(records) == 0 {
		return []*Account{}, nil
	}

	// Map header names to column positions
	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}

	field := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	accounts := make([]*Account, 0, len(records)-1)
	for _, row := range records[1:] {
		account := &Account{
			Email:       field(row, "email"),
			PhoneNumber: field(row, "phone_number"),
			Password:    field(row, "password"),
			FirstName:   field(row, "first_name"),
			LastName:    field(row, "last_name"),
		}
		for n := 1; n <= NumRooms; n++ {
			status := strings.ToLower(strings.TrimSpace(field(row, fmt.Sprintf("room%d_status", n))))
			account.Rooms[n-1] = RoomProgress{
				Played:   status == "true",
				PlayedAt: field(row, fmt.Sprintf("room%d_timestamp", n)),
			}
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

// Write rewrites a ledger CSV with the full account list. The file is staged
// next to the target and renamed into place so a crash mid-write cannot leave
// a truncated ledger behind.
func Write(path string, accounts []*Account) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(FieldNames); err != nil {
		f.Close()
		return fmt.Errorf("failed to write ledger header: %w", err)
	}

	for _, account := range accounts {
		row := []string{
			account.Email,
			account.Password,
			account.FirstName,
			account.LastName,
			account.PhoneNumber,
		}
		for n := 1; n <= NumRooms; n++ {
			progress := account.Rooms[n-1]
			status := "false"
			if progress.Played {
				status = "true"
			}
			row = append(row, status, progress.PlayedAt)
		}
		if err := writer.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close ledger: %w", err)
	}

	return os.Rename(tmp, path)
}

// OutputFilename returns the ledger file written after completing the given
// room: accounts that finished room 1 are ready for room 2, and so on.
func OutputFilename(room int) string {
	switch room {
	case 1:
		return "ready_for_room2.csv"
	case 2:
		return "ready_for_room3.csv"
	case 3:
		return "completed_process.csv"
	}
	return "output.csv"
}
