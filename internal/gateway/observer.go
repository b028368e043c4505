package gateway

import (
	"fmt"

	"tgranger/pkg/models"
	"tgranger/pkg/scraper"
)

// runObserver bridges one scrape run to its connection: member records are
// persisted then forwarded, progress is forwarded, and the terminal event
// refreshes the group's scrape metadata.
type runObserver struct {
	server  *Server
	conn    *conn
	groupID string
}

var _ scraper.Observer = (*runObserver)(nil)

// OnMember persists the record and streams the member_found event.
func (o *runObserver) OnMember(member models.Member) {
	member.GroupID = o.groupID
	if err := o.server.store.InsertMember(o.server.baseCtx, &member); err != nil {
		// Persistence trouble must not break the event stream; the run
		// keeps going and the failure is logged.
		o.server.log.WithError(err).WithField("group_id", o.groupID).Error("failed to persist member")
	}
	o.conn.send(reply{"status": "member_found", "member": member})
}

// OnProgress streams the scraping_progress event.
func (o *runObserver) OnProgress(current, total int) {
	o.conn.send(reply{
		"status":  "scraping_progress",
		"current": current,
		"total":   total,
	})
}

// OnComplete closes the stream and stamps the group's scrape state.
func (o *runObserver) OnComplete(totalScraped int) {
	if err := o.server.store.UpdateGroupScraped(o.server.baseCtx, o.groupID, totalScraped); err != nil {
		o.server.log.WithError(err).WithField("group_id", o.groupID).Error("failed to update group scrape state")
	}
	o.conn.send(reply{
		"status":        "scraping_complete",
		"total_scraped": totalScraped,
		"message":       fmt.Sprintf("Scraping complete: %d members collected", totalScraped),
	})
}

// OnError closes the stream with the run's failure.
func (o *runObserver) OnError(message string) {
	o.conn.sendError(message)
}
