// Package views renders server-side HTML fragments for the feedback list UI.
package views

import (
	"html/template"
	"io"

	"game-feedback-system/models"
)

// One item of the infinite-scrolling feedback list. Pure projection: the
// caller supplies a fully joined record, nothing is fetched here.
var feedbackItem = template.Must(template.New("feedback_item").Parse(`<div class="feedback-item" data-feedback-id="{{.ID}}">
  <img class="feedback-avatar" src="{{.User.OauthImgSrc}}" alt="">
  <div class="feedback-item-body">
    <span class="feedback-user-name">{{.User.OauthName}}</span>
    <span class="feedback-rating" data-rating="{{.Rating}}">{{.Rating}}/4</span>
    <p class="feedback-comment">{{.Comment}}</p>
  </div>
</div>
`))

// RenderFeedbackItem writes the HTML fragment for one feedback-with-user
// record. Comment and name are escaped by html/template.
func RenderFeedbackItem(w io.Writer, feedback models.FeedbackWithUser) error {
	return feedbackItem.Execute(w, feedback)
}
