package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/Afefmejri25/crm/models"
	"golang.org/x/text/collate"
)

var ErrUnknownClient = errors.New("client is not in the list")

type ClientState struct {
	Clients  []models.Client
	Selected *models.Client
	Loading  bool
	Error    string
}

type ClientStore struct {
	observable[ClientState]
	repo ClientRepository

	collMu   sync.Mutex
	collator *collate.Collator
}

// NewClientStore sorts with collator; nil falls back to byte order.
func NewClientStore(repo ClientRepository, collator *collate.Collator) *ClientStore {
	return &ClientStore{repo: repo, collator: collator}
}

func (s *ClientStore) State() ClientState { return s.snapshot() }

func (s *ClientStore) FetchClients(ctx context.Context) error {
	gen := s.beginFetch(func(st *ClientState) { st.Loading = true })

	clients, err := s.repo.ListClients(ctx)
	if err != nil {
		s.finishFetch(gen, func(st *ClientState) {
			st.Loading = false
			st.Error = err.Error()
		})
		return err
	}

	clients = s.sorted(clients)
	s.finishFetch(gen, func(st *ClientState) {
		st.Clients = clients
		st.Selected = reselect(clients, st.Selected)
		st.Loading = false
		st.Error = ""
	})
	return nil
}

func (s *ClientStore) AddClient(ctx context.Context, input models.ClientInput) (*models.Client, error) {
	created, err := s.repo.CreateClient(ctx, input)
	if err != nil {
		s.set(func(st *ClientState) { st.Error = err.Error() })
		return nil, err
	}

	s.commit(func(st *ClientState) {
		st.Clients = s.sorted(append(slices.Clone(st.Clients), *created))
		st.Loading = false
		st.Error = ""
	})
	return created, nil
}

func (s *ClientStore) UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (*models.Client, error) {
	updated, err := s.repo.UpdateClient(ctx, id, patch)
	if err != nil {
		s.set(func(st *ClientState) { st.Error = err.Error() })
		return nil, err
	}

	s.commit(func(st *ClientState) {
		clients := slices.Clone(st.Clients)
		for i := range clients {
			if clients[i].ID == updated.ID {
				clients[i] = *updated
			}
		}
		st.Clients = s.sorted(clients)
		st.Selected = reselect(st.Clients, st.Selected)
		st.Loading = false
		st.Error = ""
	})
	return updated, nil
}

// SetSelectedClient selects a client from the current list. An empty id clears the selection.
func (s *ClientStore) SetSelectedClient(id string) error {
	var err error
	s.set(func(st *ClientState) {
		if id == "" {
			st.Selected = nil
			return
		}
		idx := slices.IndexFunc(st.Clients, func(c models.Client) bool { return c.ID == id })
		if idx < 0 {
			err = ErrUnknownClient
			return
		}
		selected := st.Clients[idx]
		st.Selected = &selected
	})
	return err
}

// Find returns the client with id from the current list.
func (s *ClientStore) Find(id string) (models.Client, bool) {
	st := s.snapshot()
	idx := slices.IndexFunc(st.Clients, func(c models.Client) bool { return c.ID == id })
	if idx < 0 {
		return models.Client{}, false
	}
	return st.Clients[idx], true
}

func (s *ClientStore) setCollator(c *collate.Collator) {
	s.collMu.Lock()
	s.collator = c
	s.collMu.Unlock()

	s.set(func(st *ClientState) { st.Clients = s.sorted(slices.Clone(st.Clients)) })
}

// sorted orders clients by company name for the current language.
func (s *ClientStore) sorted(clients []models.Client) []models.Client {
	s.collMu.Lock()
	defer s.collMu.Unlock()
	slices.SortStableFunc(clients, func(a, b models.Client) int {
		if s.collator != nil {
			return s.collator.CompareString(a.CompanyName, b.CompanyName)
		}
		return strings.Compare(a.CompanyName, b.CompanyName)
	})
	return clients
}

func reselect(clients []models.Client, selected *models.Client) *models.Client {
	if selected == nil {
		return nil
	}
	for _, c := range clients {
		if c.ID == selected.ID {
			return &c
		}
	}
	return nil
}
