package protocol

// EntityItem is a scene object characters can reason about.
type EntityItem struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"displayName,omitempty"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// ItemsOperationEvent changes the entity items of a session. At most one
// field is set.
type ItemsOperationEvent struct {
	CreateOrUpdateItems *CreateOrUpdateItems `json:"createOrUpdateItems,omitempty"`
	ItemsInEntities     *ItemsInEntities     `json:"itemsInEntities,omitempty"`
	RemoveItems         *RemoveItems         `json:"removeItems,omitempty"`
}

// CreateOrUpdateItems writes items by id and adds them to the named entities.
type CreateOrUpdateItems struct {
	Items         []EntityItem `json:"items"`
	AddToEntities []string     `json:"addToEntities"`
}

// ItemsInEntitiesType is the membership change applied by ItemsInEntities.
type ItemsInEntitiesType string

const (
	ItemsInEntitiesAdd     ItemsInEntitiesType = "ADD"
	ItemsInEntitiesRemove  ItemsInEntitiesType = "REMOVE"
	ItemsInEntitiesReplace ItemsInEntitiesType = "REPLACE"
)

type ItemsInEntities struct {
	Type        ItemsInEntitiesType `json:"type"`
	ItemIDs     []string            `json:"itemIds"`
	EntityNames []string            `json:"entityNames"`
}

// RemoveItems destroys items; they leave every entity holding them.
type RemoveItems struct {
	ItemIDs []string `json:"itemIds"`
}

// NewCreateOrUpdateItemsPacket writes items and adds them to entities. Items
// without an id get a fresh one.
func NewCreateOrUpdateItemsPacket(items []EntityItem, addToEntities []string) *Packet {
	p := newWorldPacket(KindItemsOperation)
	out := make([]EntityItem, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = NewID()
		}
		out[i] = item
	}
	p.ItemsOperation = &ItemsOperationEvent{CreateOrUpdateItems: &CreateOrUpdateItems{
		Items:         out,
		AddToEntities: compactTargets(addToEntities),
	}}
	return p
}

// NewItemsInEntitiesPacket adds, removes or replaces item membership.
func NewItemsInEntitiesPacket(op ItemsInEntitiesType, itemIDs, entityNames []string) *Packet {
	p := newWorldPacket(KindItemsOperation)
	p.ItemsOperation = &ItemsOperationEvent{ItemsInEntities: &ItemsInEntities{
		Type:        op,
		ItemIDs:     compactTargets(itemIDs),
		EntityNames: compactTargets(entityNames),
	}}
	return p
}

func NewDestroyItemsPacket(itemIDs []string) *Packet {
	p := newWorldPacket(KindItemsOperation)
	p.ItemsOperation = &ItemsOperationEvent{RemoveItems: &RemoveItems{ItemIDs: compactTargets(itemIDs)}}
	return p
}
