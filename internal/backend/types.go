package backend

import "time"

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type SetupStatus struct {
	SetupCompleted bool `json:"setup_completed"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OrderItem struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Price    *float64 `json:"price"`
}

type Order struct {
	ID                int64       `json:"id"`
	OrderNumber       *string     `json:"order_number"`
	TrackingNumber    *string     `json:"tracking_number"`
	Carrier           *string     `json:"carrier"`
	VendorName        *string     `json:"vendor_name"`
	VendorDomain      *string     `json:"vendor_domain"`
	Status            string      `json:"status"`
	OrderDate         *string     `json:"order_date"`
	TotalAmount       *float64    `json:"total_amount"`
	Currency          *string     `json:"currency"`
	Items             []OrderItem `json:"items"`
	EstimatedDelivery *string     `json:"estimated_delivery"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

type OrderEvent struct {
	ID          int64          `json:"id"`
	OrderID     int64          `json:"order_id"`
	EventType   string         `json:"event_type"`
	Description *string        `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	RawData     map[string]any `json:"raw_data"`
}

type OrderDetail struct {
	Order
	Events []OrderEvent `json:"events"`
}

// OrderUpdate is a partial order update; nil fields are left untouched.
type OrderUpdate struct {
	OrderNumber       *string  `json:"order_number,omitempty"`
	TrackingNumber    *string  `json:"tracking_number,omitempty"`
	Carrier           *string  `json:"carrier,omitempty"`
	VendorName        *string  `json:"vendor_name,omitempty"`
	Status            *string  `json:"status,omitempty"`
	TotalAmount       *float64 `json:"total_amount,omitempty"`
	Currency          *string  `json:"currency,omitempty"`
	EstimatedDelivery *string  `json:"estimated_delivery,omitempty"`
}

type OrderFilter struct {
	Status string
	Search string
}

type QueueItem struct {
	ID            int64          `json:"id"`
	UserID        int64          `json:"user_id"`
	Status        string         `json:"status"`
	SourceType    string         `json:"source_type"`
	SourceInfo    string         `json:"source_info"`
	RawData       map[string]any `json:"raw_data"`
	ExtractedData map[string]any `json:"extracted_data"`
	ErrorMessage  *string        `json:"error_message"`
	OrderID       *int64         `json:"order_id"`
	ClonedFromID  *int64         `json:"cloned_from_id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type QueueItemList struct {
	Items   []QueueItem `json:"items"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

type QueueStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

type QueueFilter struct {
	Page       int
	PerPage    int
	Status     string
	SourceType string
}

type EmailScan struct {
	ID             int64          `json:"id"`
	AccountID      int64          `json:"account_id"`
	AccountName    *string        `json:"account_name"`
	FolderPath     string         `json:"folder_path"`
	EmailUID       int64          `json:"email_uid"`
	MessageID      string         `json:"message_id"`
	Subject        string         `json:"subject"`
	Sender         string         `json:"sender"`
	EmailDate      *string        `json:"email_date"`
	IsRelevant     bool           `json:"is_relevant"`
	LLMRawResponse map[string]any `json:"llm_raw_response"`
	OrderID        *int64         `json:"order_id"`
	RescanQueued   bool           `json:"rescan_queued"`
	CreatedAt      time.Time      `json:"created_at"`
}

type EmailScanList struct {
	Items   []EmailScan `json:"items"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

type EmailContent struct {
	Subject  string  `json:"subject"`
	Sender   string  `json:"sender"`
	Date     *string `json:"date"`
	BodyText string  `json:"body_text"`
}

type ScanFilter struct {
	Page       int
	PerPage    int
	IsRelevant *bool
	AccountID  int64
}

type EmailAccount struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	IMAPHost           string    `json:"imap_host"`
	IMAPPort           int       `json:"imap_port"`
	IMAPUser           string    `json:"imap_user"`
	UseSSL             bool      `json:"use_ssl"`
	PollingIntervalSec int       `json:"polling_interval_sec"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type CreateAccount struct {
	Name               string `json:"name"`
	IMAPHost           string `json:"imap_host"`
	IMAPPort           int    `json:"imap_port"`
	IMAPUser           string `json:"imap_user"`
	IMAPPassword       string `json:"imap_password"`
	UseSSL             bool   `json:"use_ssl"`
	PollingIntervalSec int    `json:"polling_interval_sec"`
}

type UpdateAccount struct {
	Name               *string `json:"name,omitempty"`
	IMAPHost           *string `json:"imap_host,omitempty"`
	IMAPPort           *int    `json:"imap_port,omitempty"`
	IMAPUser           *string `json:"imap_user,omitempty"`
	IMAPPassword       *string `json:"imap_password,omitempty"`
	UseSSL             *bool   `json:"use_ssl,omitempty"`
	PollingIntervalSec *int    `json:"polling_interval_sec,omitempty"`
	IsActive           *bool   `json:"is_active,omitempty"`
}

type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type WatchedFolder struct {
	ID          int64  `json:"id"`
	FolderPath  string `json:"folder_path"`
	LastSeenUID int64  `json:"last_seen_uid"`
}

// ModuleState is the backend's view of one module. The backend may omit
// everything but the key and the enabled flag.
type ModuleState struct {
	ModuleKey   string  `json:"module_key"`
	Enabled     bool    `json:"enabled"`
	Configured  *bool   `json:"configured,omitempty"`
	Name        *string `json:"name,omitempty"`
	Type        *string `json:"type,omitempty"`
	Description *string `json:"description,omitempty"`
}

// IsConfigured treats a missing flag as configured.
func (m ModuleState) IsConfigured() bool {
	return m.Configured == nil || *m.Configured
}

type SenderAddress struct {
	ID           int64     `json:"id"`
	EmailAddress string    `json:"email_address"`
	CreatedAt    time.Time `json:"created_at"`
}
