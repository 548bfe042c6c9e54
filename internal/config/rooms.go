package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"jmdev.ca/glade-room-bot/internal/ledger"
)

// Room describes one game room: where it lives on the site and the API key
// its score submission uses.
type Room struct {
	Number int    `yaml:"number"`
	Key    string `yaml:"key"`
	Path   string `yaml:"path"`
	Label  string `yaml:"label"`
}

type roomsFile struct {
	Rooms []Room `yaml:"rooms"`
}

// DefaultRooms returns the stock room set used when no rooms file exists.
func DefaultRooms() map[int]Room {
	rooms := make(map[int]Room, ledger.NumRooms)
	for n := 1; n <= ledger.NumRooms; n++ {
		rooms[n] = Room{
			Number: n,
			Key:    fmt.Sprintf("Misc%d", n),
			Path:   fmt.Sprintf("game-room/room-%d/", n),
			Label:  fmt.Sprintf("Room %d", n),
		}
	}
	return rooms
}

// LoadRooms reads room definitions from a YAML file and validates them.
// Rooms not present in the file keep their defaults, so a partial file only
// overrides what it names.
func LoadRooms(path string) (map[int]Room, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rooms file: %w", err)
	}

	var parsed roomsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse rooms file: %w", err)
	}

	rooms := DefaultRooms()
	seen := make(map[int]bool)
	for _, room := range parsed.Rooms {
		if room.Number < 1 || room.Number > ledger.NumRooms {
			return nil, fmt.Errorf("rooms file: invalid room number %d", room.Number)
		}
		if seen[room.Number] {
			return nil, fmt.Errorf("rooms file: duplicate room number %d", room.Number)
		}
		seen[room.Number] = true

		merged := rooms[room.Number]
		if room.Key != "" {
			merged.Key = room.Key
		}
		if room.Path != "" {
			merged.Path = room.Path
		}
		if room.Label != "" {
			merged.Label = room.Label
		}
		rooms[room.Number] = merged
	}

	return rooms, nil
}
