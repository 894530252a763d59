package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"eventimporter/internal/store"
)

// resolveEntry finds a cached event by numeric id or by source URL.
func resolveEntry(ctx context.Context, st *store.Store, arg string) (*store.Entry, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, errors.New("event id or url is required")
	}

	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		entry, err := st.GetEntryByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, fmt.Errorf("no cached event with id %d", id)
		}
		return entry, nil
	}

	entry, err := st.GetEntry(ctx, arg)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("no cached event for %s", arg)
	}
	return entry, nil
}
