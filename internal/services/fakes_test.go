package services

import (
	"context"
	"database/sql"
	"sort"

	"github.com/alimgiray/newsletter-manager/internal/models"
)

type fakeCampaignStore struct {
	campaigns map[int64]*models.Campaign
	nextID    int64
	lastQuery models.ListQuery
	purges    int
}

func newFakeCampaignStore(campaigns ...*models.Campaign) *fakeCampaignStore {
	store := &fakeCampaignStore{campaigns: map[int64]*models.Campaign{}}
	for _, c := range campaigns {
		store.campaigns[c.ID] = c
		if c.ID > store.nextID {
			store.nextID = c.ID
		}
	}
	return store
}

func (f *fakeCampaignStore) Create(ctx context.Context, campaign *models.Campaign) error {
	f.nextID++
	campaign.ID = f.nextID
	f.campaigns[campaign.ID] = campaign
	return nil
}

func (f *fakeCampaignStore) Update(ctx context.Context, campaign *models.Campaign) error {
	if _, ok := f.campaigns[campaign.ID]; !ok {
		return sql.ErrNoRows
	}
	f.campaigns[campaign.ID] = campaign
	return nil
}

func (f *fakeCampaignStore) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCampaignStore) Delete(ctx context.Context, id int64) error {
	if _, ok := f.campaigns[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.campaigns, id)
	return nil
}

func (f *fakeCampaignStore) DeletePreviews(ctx context.Context) (int64, error) {
	f.purges++
	var n int64
	for id, c := range f.campaigns {
		if c.Status == models.CampaignStatusPreview {
			delete(f.campaigns, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeCampaignStore) sorted() []*models.Campaign {
	list := make([]*models.Campaign, 0, len(f.campaigns))
	for _, c := range f.campaigns {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (f *fakeCampaignStore) List(ctx context.Context, q models.ListQuery) ([]*models.Campaign, int, error) {
	f.lastQuery = q
	all := f.sorted()
	if q.Limit >= 0 {
		end := q.Offset + q.Limit
		if end > len(all) {
			end = len(all)
		}
		if q.Offset > len(all) {
			return []*models.Campaign{}, len(all), nil
		}
		return all[q.Offset:end], len(all), nil
	}
	return all, len(all), nil
}

func (f *fakeCampaignStore) ListPreviews(ctx context.Context) ([]*models.Campaign, error) {
	var previews []*models.Campaign
	for _, c := range f.sorted() {
		if c.Status == models.CampaignStatusPreview {
			previews = append(previews, c)
		}
	}
	return previews, nil
}

type fakeAddressStore struct {
	addresses map[int64]*models.Address
	nextID    int64
	creates   int
	lastQuery models.ListQuery
	mailings  map[int64]int
}

func newFakeAddressStore(addresses ...*models.Address) *fakeAddressStore {
	store := &fakeAddressStore{addresses: map[int64]*models.Address{}, mailings: map[int64]int{}}
	for _, a := range addresses {
		store.addresses[a.ID] = a
		if a.ID > store.nextID {
			store.nextID = a.ID
		}
	}
	return store
}

func (f *fakeAddressStore) List(ctx context.Context, q models.ListQuery) ([]*models.Address, int, error) {
	f.lastQuery = q
	list := make([]*models.Address, 0, len(f.addresses))
	for _, a := range f.addresses {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, len(list), nil
}

func (f *fakeAddressStore) Create(ctx context.Context, address *models.Address) error {
	f.creates++
	f.nextID++
	address.ID = f.nextID
	f.addresses[address.ID] = address
	return nil
}

func (f *fakeAddressStore) GetByID(ctx context.Context, id int64) (*models.Address, error) {
	a, ok := f.addresses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAddressStore) Update(ctx context.Context, address *models.Address) error {
	if _, ok := f.addresses[address.ID]; !ok {
		return sql.ErrNoRows
	}
	f.addresses[address.ID] = address
	return nil
}

func (f *fakeAddressStore) DeleteMany(ctx context.Context, ids []int64) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := f.addresses[id]; ok {
			delete(f.addresses, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeAddressStore) CountByLastMailing(ctx context.Context, campaignIDs []int64) (map[int64]int, error) {
	counts := map[int64]int{}
	for _, id := range campaignIDs {
		if n, ok := f.mailings[id]; ok {
			counts[id] = n
		}
	}
	return counts, nil
}

func (f *fakeAddressStore) ExistsInGroup(ctx context.Context, email string, groupID int64) (bool, error) {
	for _, a := range f.addresses {
		if a.Email == email && a.GroupID == groupID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAddressStore) DeleteManualByEmail(ctx context.Context, email string) (int64, error) {
	var n int64
	for id, a := range f.addresses {
		if a.Email == email && !a.IsCustomer {
			delete(f.addresses, id)
			n++
		}
	}
	return n, nil
}

type fakeSenderStore struct {
	senders map[int64]*models.Sender
	deleted []int64
}

func newFakeSenderStore(senders ...*models.Sender) *fakeSenderStore {
	store := &fakeSenderStore{senders: map[int64]*models.Sender{}}
	for _, s := range senders {
		store.senders[s.ID] = s
	}
	return store
}

func (f *fakeSenderStore) List(ctx context.Context, q models.ListQuery) ([]*models.Sender, int, error) {
	var list []*models.Sender
	for _, s := range f.senders {
		list = append(list, s)
	}
	return list, len(list), nil
}

func (f *fakeSenderStore) Create(ctx context.Context, sender *models.Sender) error {
	sender.ID = int64(len(f.senders) + 1)
	f.senders[sender.ID] = sender
	return nil
}

func (f *fakeSenderStore) GetByID(ctx context.Context, id int64) (*models.Sender, error) {
	s, ok := f.senders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSenderStore) Update(ctx context.Context, sender *models.Sender) error {
	if _, ok := f.senders[sender.ID]; !ok {
		return sql.ErrNoRows
	}
	f.senders[sender.ID] = sender
	return nil
}

func (f *fakeSenderStore) DeleteMany(ctx context.Context, ids []int64) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := f.senders[id]; ok {
			delete(f.senders, id)
			f.deleted = append(f.deleted, id)
			n++
		}
	}
	return n, nil
}

type fakeGroupStore struct {
	groups    map[int64]*models.NewsletterGroup
	recipient []models.RecipientGroup
	field     string
	direction string
	deleted   []int64
}

func (f *fakeGroupStore) List(ctx context.Context, q models.ListQuery) ([]*models.NewsletterGroup, int, error) {
	var list []*models.NewsletterGroup
	for _, g := range f.groups {
		list = append(list, g)
	}
	return list, len(list), nil
}

func (f *fakeGroupStore) Create(ctx context.Context, group *models.NewsletterGroup) error {
	if f.groups == nil {
		f.groups = map[int64]*models.NewsletterGroup{}
	}
	group.ID = int64(len(f.groups) + 1)
	f.groups[group.ID] = group
	return nil
}

func (f *fakeGroupStore) DeleteMany(ctx context.Context, ids []int64) (int, error) {
	f.deleted = append(f.deleted, ids...)
	return len(ids), nil
}

func (f *fakeGroupStore) ListRecipientGroups(ctx context.Context, field, direction string) ([]models.RecipientGroup, error) {
	f.field, f.direction = field, direction
	return f.recipient, nil
}

type fakeRevenue struct {
	revenue map[string]float64
	calls   int
}

func (f *fakeRevenue) PartnerRevenue(ctx context.Context) (map[string]float64, error) {
	f.calls++
	return f.revenue, nil
}
