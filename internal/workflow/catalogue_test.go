package workflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/edvin/commerce-messaging/internal/activity"
	"github.com/edvin/commerce-messaging/internal/engine"
	"github.com/edvin/commerce-messaging/internal/model"
)

type CatalogueMessagingWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env  *testsuite.TestWorkflowEnvironment
	book *bookkeeping
}

func (s *CatalogueMessagingWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerAll(s.env)
	s.book = mockBookkeeping(s.env)
	s.env.SetStartWorkflowOptions(client.StartWorkflowOptions{
		ID:        "catalogue-messaging-B-1",
		TaskQueue: model.TaskQueueCatalogueMessaging,
	})
}

func (s *CatalogueMessagingWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func recipients(n int) []model.Recipient {
	rs := make([]model.Recipient, n)
	for i := range rs {
		rs[i] = model.Recipient{
			ID:    fmt.Sprintf("R-%d", i+1),
			Name:  fmt.Sprintf("Customer %d", i+1),
			Phone: fmt.Sprintf("+1555000000%d", i+1),
		}
	}
	return rs
}

func (s *CatalogueMessagingWorkflowTestSuite) input(rs []model.Recipient) model.StartInput {
	return model.StartInput{
		BusinessEntity: entity(model.Broadcast{ID: "B-1", CatalogueID: "cat-1", Message: "New season", Recipients: rs}),
		OrgContext:     testOrg,
		Options:        model.RunOptions{FanOutConcurrency: 2},
	}
}

func (s *CatalogueMessagingWorkflowTestSuite) mockLookups() {
	s.env.OnActivity(activity.NameFetchCatalogue, mock.Anything, activity.CatalogueQuery{OrgID: "org-1", CatalogueID: "cat-1"}).
		Return(&model.Catalogue{ID: "cat-1", Name: "Spring", URL: "https://shop.example.com/spring",
			Products: []model.Product{{ID: "p-1", Name: "Shirt"}}}, nil).Once()
	s.env.OnActivity(activity.NameGetChannelConfig, mock.Anything, "org-1").Return(testChannel, nil).Once()
	s.env.OnActivity(activity.NameGetTemplate, mock.Anything, activity.TemplateQuery{OrgID: "org-1", Kind: model.TemplateCatalogue}).
		Return(testTemplate(model.TemplateCatalogue, "{{.recipientName}}: {{.catalogueName}} {{.catalogueUrl}}"), nil).Once()
}

func (s *CatalogueMessagingWorkflowTestSuite) result() model.Result {
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
	var res model.Result
	s.NoError(s.env.GetWorkflowResult(&res))
	return res
}

func (s *CatalogueMessagingWorkflowTestSuite) TestAllRecipientsSent() {
	s.mockLookups()
	s.env.OnActivity(activity.NameSendMessage, mock.Anything, mock.MatchedBy(func(p activity.SendMessageParams) bool {
		return p.Variables["catalogueName"] == "Spring" && p.Variables["recipientName"] != ""
	})).Return(func(_ context.Context, p activity.SendMessageParams) (*activity.SendMessageResult, error) {
		return &activity.SendMessageResult{MessageID: "msg-" + p.Reference}, nil
	}).Times(3)

	s.env.ExecuteWorkflow(string(model.WorkflowCatalogueMessaging), s.input(recipients(3)))

	res := s.result()
	s.True(res.Success)
	var data model.FanOutData
	s.NoError(res.DecodeData(&data))
	s.Equal(3, data.Total)
	s.Equal(3, data.Sent)
	s.Equal(0, data.Failed)
	s.Equal("catalogue-messaging/B-1/R-1", data.Recipients[0].WorkflowID)
	s.Equal("msg-catalogue-messaging/B-1/R-1", data.Recipients[0].MessageID)

	child, ok := s.book.outcome("catalogue-messaging/B-1/R-2")
	s.True(ok)
	s.True(child.Success)
	s.Equal("R-2", child.EntityID)
}

func (s *CatalogueMessagingWorkflowTestSuite) TestRecipientFailureIsIsolated() {
	s.mockLookups()
	s.env.OnActivity(activity.NameSendMessage, mock.Anything, mock.MatchedBy(func(p activity.SendMessageParams) bool {
		return p.To == "+15550000003"
	})).Return(nil, temporal.NewNonRetryableApplicationError("channel returned 400", engine.ErrTypeFatal, nil)).Once()
	s.env.OnActivity(activity.NameSendMessage, mock.Anything, mock.MatchedBy(func(p activity.SendMessageParams) bool {
		return p.To != "+15550000003"
	})).Return(&activity.SendMessageResult{MessageID: "msg"}, nil).Times(4)

	s.env.ExecuteWorkflow(string(model.WorkflowCatalogueMessaging), s.input(recipients(5)))

	res := s.result()
	s.False(res.Success)
	s.Equal("1 of 5 recipients failed: R-3", res.Error)
	s.env.AssertActivityNumberOfCalls(s.T(), activity.NameSendMessage, 5)

	var data model.FanOutData
	s.Require().NoError(res.DecodeData(&data))
	s.Equal(5, data.Total)
	s.Equal(4, data.Sent)
	s.Equal(1, data.Failed)
	s.Equal("msg", data.Recipients[0].MessageID)
	s.False(data.Recipients[2].Success)
	s.Contains(data.Recipients[2].Error, "channel returned 400")

	failed, ok := s.book.outcome("catalogue-messaging/B-1/R-3")
	s.True(ok)
	s.False(failed.Success)
	s.Contains(failed.Error, "channel returned 400")

	for _, id := range []string{"R-1", "R-2", "R-4", "R-5"} {
		child, ok := s.book.outcome("catalogue-messaging/B-1/" + id)
		s.True(ok, id)
		s.True(child.Success, id)
	}

	parent, ok := s.book.outcome("catalogue-messaging-B-1")
	s.True(ok)
	s.False(parent.Success)
}

func (s *CatalogueMessagingWorkflowTestSuite) TestChildrenRecordParent() {
	s.mockLookups()
	s.env.OnActivity(activity.NameSendMessage, mock.Anything, mock.Anything).
		Return(&activity.SendMessageResult{MessageID: "msg"}, nil).Times(2)

	s.env.ExecuteWorkflow(string(model.WorkflowCatalogueMessaging), s.input(recipients(2)))
	s.True(s.result().Success)

	var children int
	for _, p := range s.book.running {
		if p.WorkflowType == model.WorkflowRecipientMessage {
			children++
			s.Equal("catalogue-messaging-B-1", p.ParentID)
			s.Equal(model.TaskQueueCatalogueMessaging, p.TaskQueue)
		}
	}
	s.Equal(2, children)
}

func (s *CatalogueMessagingWorkflowTestSuite) TestDuplicateRecipientsRejected() {
	rs := recipients(2)
	rs[1].ID = rs[0].ID

	s.env.ExecuteWorkflow(string(model.WorkflowCatalogueMessaging), s.input(rs))

	res := s.result()
	s.False(res.Success)
	s.Equal(model.ErrInvalidBroadcast, res.Error)
	for _, name := range businessActivities {
		s.env.AssertActivityNumberOfCalls(s.T(), name, 0)
	}
	s.Empty(s.book.running)
}

func (s *CatalogueMessagingWorkflowTestSuite) TestEmptyCatalogueFails() {
	s.env.OnActivity(activity.NameFetchCatalogue, mock.Anything, mock.Anything).
		Return(nil, temporal.NewNonRetryableApplicationError("fetch catalogue: catalogue cat-1 has no products", engine.ErrTypeFatal, nil)).Once()

	s.env.ExecuteWorkflow(string(model.WorkflowCatalogueMessaging), s.input(recipients(2)))

	res := s.result()
	s.False(res.Success)
	s.Contains(res.Error, "no products")
	s.env.AssertActivityNumberOfCalls(s.T(), activity.NameSendMessage, 0)
}

func TestCatalogueMessagingWorkflowSuite(t *testing.T) {
	suite.Run(t, new(CatalogueMessagingWorkflowTestSuite))
}
