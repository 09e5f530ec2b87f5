package schema

const VersionTableName = "localstore_version"
const VersionFieldID = "id"
const VersionFieldVersion = "version"

const FoldersTableName = "folders"
const FoldersFieldID = "id"
const FoldersFieldName = "name"
const FoldersFieldServerID = "server_id"
const FoldersFieldType = "type"
const FoldersFieldLocalOnly = "local_only"
const FoldersFieldVisibleLimit = "visible_limit"
const FoldersFieldSyncEnabled = "sync_enabled"
const FoldersFieldPushEnabled = "push_enabled"
const FoldersFieldLastUpdated = "last_updated"
const FoldersFieldStatus = "status"
const FoldersFieldMoreMessages = "more_messages"

const MessagesTableName = "messages"
const MessagesFieldID = "id"
const MessagesFieldFolderID = "folder_id"
const MessagesFieldUID = "uid"
const MessagesFieldDeleted = "deleted"
const MessagesFieldEmpty = "empty"
const MessagesFieldSubject = "subject"
const MessagesFieldDate = "date"
const MessagesFieldInternalDate = "internal_date"
const MessagesFieldSenderList = "sender_list"
const MessagesFieldToList = "to_list"
const MessagesFieldCcList = "cc_list"
const MessagesFieldBccList = "bcc_list"
const MessagesFieldReplyToList = "reply_to_list"
const MessagesFieldMessageID = "message_id"
const MessagesFieldFlags = "flags"
const MessagesFieldRead = "read"
const MessagesFieldFlagged = "flagged"
const MessagesFieldAnswered = "answered"
const MessagesFieldForwarded = "forwarded"
const MessagesFieldPreviewType = "preview_type"
const MessagesFieldPreview = "preview"
const MessagesFieldAttachmentCount = "attachment_count"
const MessagesFieldMimeType = "mime_type"
const MessagesFieldMessagePartID = "message_part_id"

const ThreadsTableName = "threads"
const ThreadsFieldID = "id"
const ThreadsFieldMessageID = "message_id"
const ThreadsFieldRoot = "root"
const ThreadsFieldParent = "parent"

const MessagePartsTableName = "message_parts"
const MessagePartsFieldID = "id"
const MessagePartsFieldType = "type"
const MessagePartsFieldRoot = "root"
const MessagePartsFieldParent = "parent"
const MessagePartsFieldSeq = "seq"
const MessagePartsFieldMimeType = "mime_type"
const MessagePartsFieldDecodedBodySize = "decoded_body_size"
const MessagePartsFieldDisplayName = "display_name"
const MessagePartsFieldHeader = "header"
const MessagePartsFieldEncoding = "encoding"
const MessagePartsFieldCharset = "charset"
const MessagePartsFieldDataLocation = "data_location"
const MessagePartsFieldData = "data"
const MessagePartsFieldPreamble = "preamble"
const MessagePartsFieldEpilogue = "epilogue"
const MessagePartsFieldBoundary = "boundary"
const MessagePartsFieldContentID = "content_id"
const MessagePartsFieldServerExtra = "server_extra"

const PendingCommandsTableName = "pending_commands"
const PendingCommandsFieldID = "id"
const PendingCommandsFieldCommand = "command"
const PendingCommandsFieldData = "data"
