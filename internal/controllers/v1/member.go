package v1

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/parish-ledger/backend/internal/audit"
	"github.com/parish-ledger/backend/internal/httputil"
	"github.com/parish-ledger/backend/internal/importer/members"
	"github.com/parish-ledger/backend/internal/ledger"
	"github.com/parish-ledger/backend/internal/models"
	"github.com/ryanuber/go-glob"
	"gorm.io/gorm"
)

// RegisterMemberRoutes registers the routes for members with
// the RouterGroup that is passed.
func RegisterMemberRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", httputil.OptionsGetPost)
		r.GET("", GetMembers)
		r.POST("", CreateMembers)
	}

	r.GET("/inactive", GetInactiveMembers)

	r.OPTIONS("/import", httputil.OptionsPost)
	r.POST("/import", ImportMembers)

	// Member with ID
	{
		r.OPTIONS("/:id", OptionsMemberDetail)
		r.GET("/:id", GetMember)
		r.PATCH("/:id", UpdateMember)
		r.DELETE("/:id", DeleteMember)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Members
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/members/{id} [options]
func OptionsMemberDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = models.DB.First(&models.Member{}, "id = ?", uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create members
// @Description	Creates new members. The whole batch fails if any member is invalid.
// @Tags			Members
// @Accept			json
// @Produce		json
// @Success		201		{object}	MemberCreateResponse
// @Failure		400		{object}	MemberCreateResponse
// @Failure		500		{object}	MemberCreateResponse
// @Param			members	body		[]MemberEditable	true	"Members"
// @Router			/v1/members [post]
func CreateMembers(c *gin.Context) {
	var editables []MemberEditable

	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberCreateResponse{Error: &e})
		return
	}

	created, err := createMembers(c, editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberCreateResponse{Error: &e})
		return
	}

	c.JSON(http.StatusCreated, MemberCreateResponse{Data: created})
}

// createMembers persists a batch of members in one transaction. Either
// all members are created or none is.
func createMembers(c *gin.Context, editables []MemberEditable) ([]Member, error) {
	actor := currentUserID(c)
	created := make([]models.Member, 0, len(editables))

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		for _, editable := range editables {
			member := editable.model()
			member.CreatedByID = actor

			err := tx.Create(&member).Error
			if err != nil {
				return err
			}

			created = append(created, member)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	apiResources := make([]Member, 0, len(created))
	for _, member := range created {
		apiResources = append(apiResources, newMember(c, member))

		audit.Record(audit.Event{
			Actor:        actor,
			Action:       models.ActionCreate,
			ResourceType: "member",
			ResourceID:   member.ID,
			RelatedEntities: []models.RelatedEntity{
				{EntityType: "user", EntityID: actor},
			},
			Description:   fmt.Sprintf("Registered new member %s.", member.Names),
			Details:       map[string]any{"names": member.Names, "category": member.Category},
			SourceAddress: c.ClientIP(),
		})
	}

	return apiResources, nil
}

// @Summary		List members
// @Description	Returns a list of members
// @Tags			Members
// @Produce		json
// @Success		200	{object}	MemberListResponse
// @Failure		400	{object}	MemberListResponse
// @Failure		500	{object}	MemberListResponse
// @Router			/v1/members [get]
// @Param			category	query	string	false	"Filter by category"
// @Param			location	query	string	false	"Filter by location"
// @Param			status		query	string	false	"Filter by status"
// @Param			gender		query	string	false	"Filter by gender"
// @Param			search		query	string	false	"Search in names, email and phone number. Supports * as wildcard."
// @Param			offset		query	uint	false	"The offset of the first member returned. Defaults to 0."
// @Param			limit		query	int		false	"Maximum number of members to return. Defaults to 50."
func GetMembers(c *gin.Context) {
	listMembers(c, "")
}

// @Summary		List inactive members
// @Description	Returns a list of members whose status is Inactive
// @Tags			Members
// @Produce		json
// @Success		200	{object}	MemberListResponse
// @Failure		400	{object}	MemberListResponse
// @Failure		500	{object}	MemberListResponse
// @Router			/v1/members/inactive [get]
func GetInactiveMembers(c *gin.Context) {
	listMembers(c, models.StatusInactive)
}

func listMembers(c *gin.Context, forceStatus models.MemberStatus) {
	var filter MemberQueryFilter

	// Every parameter is bound into a string, so this will always succeed
	_ = c.Bind(&filter)

	if forceStatus != "" {
		filter.Status = string(forceStatus)
	}

	// Always sort by name
	q := models.DB.Model(&models.Member{}).Order("names ASC")

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}

	if filter.Location != "" {
		q = q.Where("location = ?", filter.Location)
	}

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	if filter.Gender != "" {
		q = q.Where("gender = ?", filter.Gender)
	}

	// Plain search terms are matched in the database. Terms with a
	// wildcard are glob-matched in memory since SQL LIKE has different
	// wildcard characters.
	wildcard := strings.Contains(filter.Search, "*")
	if filter.Search != "" && !wildcard {
		like := fmt.Sprintf("%%%s%%", filter.Search)
		q = q.Where(
			models.DB.Where("names LIKE ?", like).
				Or("email LIKE ?", like).
				Or("phone_number LIKE ?", like),
		)
	}

	var all []models.Member
	err := q.Find(&all).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberListResponse{Error: &e})
		return
	}

	if wildcard {
		pattern := strings.ToLower(filter.Search)
		matched := make([]models.Member, 0, len(all))
		for _, member := range all {
			if glob.Glob(pattern, strings.ToLower(member.Names)) ||
				glob.Glob(pattern, strings.ToLower(member.Email)) ||
				glob.Glob(pattern, member.PhoneNumber) {
				matched = append(matched, member)
			}
		}
		all = matched
	}

	limit := 50
	if filter.Limit > 0 {
		limit = filter.Limit
	}

	total := int64(len(all))
	offset := int(filter.Offset)
	if offset > len(all) {
		offset = len(all)
	}

	page := all[offset:]
	if len(page) > limit {
		page = page[:limit]
	}

	apiResources := make([]Member, 0, len(page))
	for _, member := range page {
		apiResources = append(apiResources, newMember(c, member))
	}

	c.JSON(http.StatusOK, MemberListResponse{
		Data: apiResources,
		Pagination: &Pagination{
			Count:  len(apiResources),
			Total:  total,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get member
// @Description	Returns a specific member together with their full contribution history and balance summary
// @Tags			Members
// @Produce		json
// @Success		200	{object}	MemberDetailResponse
// @Failure		400	{object}	MemberDetailResponse
// @Failure		404	{object}	MemberDetailResponse
// @Failure		500	{object}	MemberDetailResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/members/{id} [get]
func GetMember(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberDetailResponse{Error: &e})
		return
	}

	history, err := ledger.History(c.Request.Context(), uri.ID.UUID, ledger.HistoryFilter{})
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberDetailResponse{Error: &e})
		return
	}

	data := MemberDetail{
		Member:        newMember(c, history.Member),
		Summary:       history.Summary,
		Months:        history.Months,
		Contributions: history.Contributions,
	}

	c.JSON(http.StatusOK, MemberDetailResponse{Data: &data})
}

// @Summary		Update member
// @Description	Update an existing member. Only values to be updated need to be specified.
// @Tags			Members
// @Accept			json
// @Produce		json
// @Success		200		{object}	MemberResponse
// @Failure		400		{object}	MemberResponse
// @Failure		404		{object}	MemberResponse
// @Failure		500		{object}	MemberResponse
// @Param			id		path		URIID			true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			member	body		MemberUpdate	true	"Member"
// @Router			/v1/members/{id} [patch]
func UpdateMember(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberResponse{Error: &e})
		return
	}

	var update MemberUpdate
	err = httputil.BindData(c, &update)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberResponse{Error: &e})
		return
	}

	var member models.Member
	err = models.DB.First(&member, "id = ?", uri.ID.UUID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberResponse{Error: &e})
		return
	}

	applyMemberUpdate(&member, update)

	err = models.DB.Save(&member).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberResponse{Error: &e})
		return
	}

	audit.Record(audit.Event{
		Actor:        currentUserID(c),
		Action:       models.ActionUpdate,
		ResourceType: "member",
		ResourceID:   member.ID,
		RelatedEntities: []models.RelatedEntity{
			{EntityType: "user", EntityID: currentUserID(c)},
		},
		Description:   fmt.Sprintf("Updated member %s.", member.Names),
		SourceAddress: c.ClientIP(),
	})

	data := newMember(c, member)
	c.JSON(http.StatusOK, MemberResponse{Data: &data})
}

func applyMemberUpdate(member *models.Member, update MemberUpdate) {
	if update.Names != nil {
		member.Names = *update.Names
	}
	if update.Category != nil {
		member.Category = *update.Category
	}
	if update.Email != nil {
		member.Email = *update.Email
	}
	if update.PhoneNumber != nil {
		member.PhoneNumber = *update.PhoneNumber
	}
	if update.Location != nil {
		member.Location = *update.Location
	}
	if update.Gender != nil {
		member.Gender = *update.Gender
	}
	if update.Age != nil {
		member.Age = *update.Age
	}
	if update.RegistrationDate != nil {
		member.RegistrationDate = *update.RegistrationDate
	}
	if update.MonthlyContributionAmount != nil {
		member.MonthlyContributionAmount = *update.MonthlyContributionAmount
	}
	if update.Control != nil {
		member.Control = *update.Control
	}
	if update.Status != nil {
		member.Status = *update.Status
	}
}

// @Summary		Deactivate member
// @Description	Sets the member's status to Inactive. Contribution records are kept.
// @Tags			Members
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/members/{id} [delete]
func DeleteMember(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var member models.Member
	err = models.DB.First(&member, "id = ?", uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	member.Status = models.StatusInactive
	err = models.DB.Save(&member).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	audit.Record(audit.Event{
		Actor:        currentUserID(c),
		Action:       models.ActionDelete,
		ResourceType: "member",
		ResourceID:   member.ID,
		RelatedEntities: []models.RelatedEntity{
			{EntityType: "user", EntityID: currentUserID(c)},
		},
		Description:   fmt.Sprintf("Deactivated member %s.", member.Names),
		SourceAddress: c.ClientIP(),
	})

	c.JSON(http.StatusNoContent, nil)
}

// getUploadedFile returns the form file and handles potential errors.
func getUploadedFile(c *gin.Context, suffix string) (multipart.File, error) {
	formFile, err := c.FormFile("file")
	if formFile == nil {
		return nil, errNoFilePost
	}

	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(formFile.Filename, suffix) {
		return nil, fmt.Errorf("%w: %s", errWrongFileSuffix, suffix)
	}

	return formFile.Open()
}

// @Summary		Import members
// @Description	Imports members from a CSV file. The whole file fails if any line is invalid.
// @Tags			Members
// @Accept			multipart/form-data
// @Produce		json
// @Success		201		{object}	MemberCreateResponse
// @Failure		400		{object}	MemberCreateResponse
// @Failure		500		{object}	MemberCreateResponse
// @Param			file	formData	file	true	"File to import"
// @Router			/v1/members/import [post]
func ImportMembers(c *gin.Context) {
	f, err := getUploadedFile(c, ".csv")
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberCreateResponse{Error: &e})
		return
	}
	defer f.Close()

	parsed, err := members.Parse(f)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberCreateResponse{Error: &e})
		return
	}

	editables := make([]MemberEditable, 0, len(parsed))
	for _, member := range parsed {
		editables = append(editables, MemberEditable{
			Names:                     member.Names,
			Category:                  member.Category,
			Email:                     member.Email,
			PhoneNumber:               member.PhoneNumber,
			Location:                  member.Location,
			Gender:                    member.Gender,
			Age:                       member.Age,
			RegistrationDate:          member.RegistrationDate,
			MonthlyContributionAmount: member.MonthlyContributionAmount,
			Control:                   member.Control,
			Status:                    member.Status,
		})
	}

	created, err := createMembers(c, editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberCreateResponse{Error: &e})
		return
	}

	c.JSON(http.StatusCreated, MemberCreateResponse{Data: created})
}
