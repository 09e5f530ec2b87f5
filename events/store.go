package events

// MessageListChanged is emitted after messages, their flags or their threads were modified.
type MessageListChanged struct {
	eventBase
}

func NewMessageListChanged(accountID string) MessageListChanged {
	return MessageListChanged{eventBase: eventBase{AccountID: accountID}}
}

// FolderListChanged is emitted after folders were created, renamed or deleted.
type FolderListChanged struct {
	eventBase
}

func NewFolderListChanged(accountID string) FolderListChanged {
	return FolderListChanged{eventBase: eventBase{AccountID: accountID}}
}

// StoreDeleted is emitted once the store of the account has been deleted.
type StoreDeleted struct {
	eventBase
}

func NewStoreDeleted(accountID string) StoreDeleted {
	return StoreDeleted{eventBase: eventBase{AccountID: accountID}}
}
