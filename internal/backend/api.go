package backend

import (
	"context"
	"net/url"
	"strconv"
)

// Auth

func (c *Client) Login(ctx context.Context, username, password string) (TokenResponse, error) {
	var out TokenResponse
	err := c.post(ctx, "", "/auth/login", Credentials{Username: username, Password: password}, &out)
	return out, err
}

func (c *Client) Setup(ctx context.Context, username, password string) (TokenResponse, error) {
	var out TokenResponse
	err := c.post(ctx, "", "/auth/setup", Credentials{Username: username, Password: password}, &out)
	return out, err
}

func (c *Client) Status(ctx context.Context) (SetupStatus, error) {
	var out SetupStatus
	err := c.get(ctx, "", "/auth/status", nil, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var out User
	err := c.get(ctx, token, "/auth/me", nil, &out)
	return out, err
}

// Accounts

func (c *Client) Accounts(ctx context.Context, token string) ([]EmailAccount, error) {
	var out []EmailAccount
	err := c.get(ctx, token, "/accounts", nil, &out)
	return out, err
}

func (c *Client) CreateAccount(ctx context.Context, token string, in CreateAccount) (EmailAccount, error) {
	var out EmailAccount
	err := c.post(ctx, token, "/accounts", in, &out)
	return out, err
}

func (c *Client) UpdateAccount(ctx context.Context, token string, id int64, in UpdateAccount) (EmailAccount, error) {
	var out EmailAccount
	err := c.patch(ctx, token, idPath("/accounts/%d", id), in, &out)
	return out, err
}

func (c *Client) DeleteAccount(ctx context.Context, token string, id int64) error {
	return c.delete(ctx, token, idPath("/accounts/%d", id))
}

func (c *Client) TestAccount(ctx context.Context, token string, id int64) (ConnectionResult, error) {
	var out ConnectionResult
	err := c.post(ctx, token, idPath("/accounts/%d/test", id), nil, &out)
	return out, err
}

func (c *Client) Folders(ctx context.Context, token string, id int64) ([]string, error) {
	var out []string
	err := c.get(ctx, token, idPath("/accounts/%d/folders", id), nil, &out)
	return out, err
}

func (c *Client) WatchedFolders(ctx context.Context, token string, id int64) ([]WatchedFolder, error) {
	var out []WatchedFolder
	err := c.get(ctx, token, idPath("/accounts/%d/folders/watched", id), nil, &out)
	return out, err
}

func (c *Client) AddWatchedFolder(ctx context.Context, token string, id int64, folderPath string) (WatchedFolder, error) {
	var out WatchedFolder
	body := map[string]string{"folder_path": folderPath}
	err := c.post(ctx, token, idPath("/accounts/%d/folders/watched", id), body, &out)
	return out, err
}

func (c *Client) RemoveWatchedFolder(ctx context.Context, token string, id, folderID int64) error {
	return c.delete(ctx, token, idPath("/accounts/%d/folders/watched/%d", id, folderID))
}

// Orders

func (c *Client) Orders(ctx context.Context, token string, filter OrderFilter) ([]Order, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	var out []Order
	err := c.get(ctx, token, "/orders", q, &out)
	return out, err
}

func (c *Client) Order(ctx context.Context, token string, id int64) (OrderDetail, error) {
	var out OrderDetail
	err := c.get(ctx, token, idPath("/orders/%d", id), nil, &out)
	return out, err
}

func (c *Client) UpdateOrder(ctx context.Context, token string, id int64, in OrderUpdate) (Order, error) {
	var out Order
	err := c.patch(ctx, token, idPath("/orders/%d", id), in, &out)
	return out, err
}

func (c *Client) DeleteOrder(ctx context.Context, token string, id int64) error {
	return c.delete(ctx, token, idPath("/orders/%d", id))
}

// Queue

func (c *Client) QueueItems(ctx context.Context, token string, filter QueueFilter) (QueueItemList, error) {
	q := url.Values{}
	setInt(q, "page", filter.Page)
	setInt(q, "per_page", filter.PerPage)
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.SourceType != "" {
		q.Set("source_type", filter.SourceType)
	}
	var out QueueItemList
	err := c.get(ctx, token, "/queue", q, &out)
	return out, err
}

func (c *Client) QueueItem(ctx context.Context, token string, id int64) (QueueItem, error) {
	var out QueueItem
	err := c.get(ctx, token, idPath("/queue/%d", id), nil, &out)
	return out, err
}

func (c *Client) DeleteQueueItem(ctx context.Context, token string, id int64) error {
	return c.delete(ctx, token, idPath("/queue/%d", id))
}

// RetryQueueItem re-queues a failed item. Retries only ever happen on an
// explicit user request.
func (c *Client) RetryQueueItem(ctx context.Context, token string, id int64) (QueueItem, error) {
	var out QueueItem
	err := c.post(ctx, token, idPath("/queue/%d/retry", id), nil, &out)
	return out, err
}

func (c *Client) QueueStats(ctx context.Context, token string) (QueueStats, error) {
	var out QueueStats
	err := c.get(ctx, token, "/queue/stats", nil, &out)
	return out, err
}

// Scan history

func (c *Client) Scans(ctx context.Context, token string, filter ScanFilter) (EmailScanList, error) {
	q := url.Values{}
	setInt(q, "page", filter.Page)
	setInt(q, "per_page", filter.PerPage)
	if filter.IsRelevant != nil {
		q.Set("is_relevant", strconv.FormatBool(*filter.IsRelevant))
	}
	if filter.AccountID > 0 {
		q.Set("account_id", strconv.FormatInt(filter.AccountID, 10))
	}
	var out EmailScanList
	err := c.get(ctx, token, "/scan-history", q, &out)
	return out, err
}

func (c *Client) Scan(ctx context.Context, token string, id int64) (EmailScan, error) {
	var out EmailScan
	err := c.get(ctx, token, idPath("/scan-history/%d", id), nil, &out)
	return out, err
}

func (c *Client) ScanEmail(ctx context.Context, token string, id int64) (EmailContent, error) {
	var out EmailContent
	err := c.get(ctx, token, idPath("/scan-history/%d/email", id), nil, &out)
	return out, err
}

func (c *Client) DeleteScan(ctx context.Context, token string, id int64) error {
	return c.delete(ctx, token, idPath("/scan-history/%d", id))
}

func (c *Client) Rescan(ctx context.Context, token string, id int64) (EmailScan, error) {
	var out EmailScan
	err := c.post(ctx, token, idPath("/scan-history/%d/rescan", id), nil, &out)
	return out, err
}

// Modules

func (c *Client) Modules(ctx context.Context, token string) ([]ModuleState, error) {
	var out []ModuleState
	err := c.get(ctx, token, "/modules", nil, &out)
	return out, err
}

func (c *Client) SetModuleEnabled(ctx context.Context, token, key string, enabled bool) (ModuleState, error) {
	var out ModuleState
	body := map[string]bool{"enabled": enabled}
	err := c.put(ctx, token, "/modules/"+url.PathEscape(key), body, &out)
	return out, err
}

// Global mail redirect sender addresses

const senderAddressesPath = "/providers/email-global/sender-addresses"

func (c *Client) SenderAddresses(ctx context.Context, token string) ([]SenderAddress, error) {
	var out []SenderAddress
	err := c.get(ctx, token, senderAddressesPath, nil, &out)
	return out, err
}

func (c *Client) AddSenderAddress(ctx context.Context, token, email string) (SenderAddress, error) {
	var out SenderAddress
	err := c.post(ctx, token, senderAddressesPath, map[string]string{"email_address": email}, &out)
	return out, err
}

func (c *Client) RemoveSenderAddress(ctx context.Context, token string, id int64) error {
	return c.delete(ctx, token, idPath(senderAddressesPath+"/%d", id))
}
