package queue

// Queue is a routing bucket tickets are filed into.
type Queue struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"type:varchar(255);not null" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
}

// QueuePermission lets members of a group file tickets into a queue.
type QueuePermission struct {
	ID      uint `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID uint `gorm:"not null;uniqueIndex:idx_queue_permissions_pair" json:"group_id"`
	QueueID uint `gorm:"not null;uniqueIndex:idx_queue_permissions_pair" json:"queue_id"`
}

// AgentAssignment grants an agent access to a queue at a given level.
type AgentAssignment struct {
	ID            uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	AgentUserID   uint    `gorm:"not null;uniqueIndex:idx_agent_assignments_pair" json:"agent_user_id"`
	QueueID       uint    `gorm:"not null;uniqueIndex:idx_agent_assignments_pair" json:"queue_id"`
	AccessLevel   *string `gorm:"type:varchar(20)" json:"access_level"`
	AllowTransfer bool    `gorm:"not null;default:false" json:"allow_transfer"`
}
