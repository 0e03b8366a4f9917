package authkit

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-authkit/binding"
	"github.com/goliatone/go-authkit/mail"
	"github.com/goliatone/go-authkit/messaging"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// Mailboxes resolves a mail receiver by account name
type Mailboxes interface {
	Receiver(name string) (mail.Receiver, error)
}

// ControllerRoutes holds the path prefix of each resource
type ControllerRoutes struct {
	Me       string
	Login    string
	Roles    string
	Users    string
	Mail     string
	Messages string
	Metrics  string
}

// Controller exposes the entity services, mail receivers and the message
// sender over HTTP
type Controller struct {
	Debug     bool
	Logger    Logger
	Routes    *ControllerRoutes
	Roles     LoginRoleService
	Users     UserLoginService
	Mailboxes Mailboxes
	Messages  messaging.Sender
	Images    *binding.ImageConverter
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller) *Controller

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerDebug dumps request payloads at debug level
func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

// WithRoleService sets the LoginRole service
func WithRoleService(roles LoginRoleService) ControllerOption {
	return func(c *Controller) *Controller {
		c.Roles = roles
		return c
	}
}

// WithUserService sets the UserLogin service
func WithUserService(users UserLoginService) ControllerOption {
	return func(c *Controller) *Controller {
		c.Users = users
		return c
	}
}

// WithMailboxes enables the mail routes
func WithMailboxes(mailboxes Mailboxes) ControllerOption {
	return func(c *Controller) *Controller {
		c.Mailboxes = mailboxes
		return c
	}
}

// WithMessageSender enables the messaging routes
func WithMessageSender(sender messaging.Sender) ControllerOption {
	return func(c *Controller) *Controller {
		c.Messages = sender
		return c
	}
}

// WithImageConverter sets the converter used for avatar uploads on create
func WithImageConverter(images *binding.ImageConverter) ControllerOption {
	return func(c *Controller) *Controller {
		if images != nil {
			c.Images = images
		}
		return c
	}
}

// WithControllerRoutes overrides the default route prefixes
func WithControllerRoutes(routes *ControllerRoutes) ControllerOption {
	return func(c *Controller) *Controller {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

// NewController builds a Controller. Role and user services are required.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger: defLogger{},
		Routes: &ControllerRoutes{
			Me:       "/me",
			Login:    "/login",
			Roles:    "/roles",
			Users:    "/users",
			Mail:     "/mail",
			Messages: "/messages",
			Metrics:  "/metrics",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Roles == nil {
		panic("Missing LoginRoleService in controller...")
	}

	if c.Users == nil {
		panic("Missing UserLoginService in controller...")
	}

	if c.Images == nil {
		c.Images = binding.NewImageConverter(binding.WithImageLogger(c.Logger))
	}

	return c
}

// RegisterRoutes mounts the controller on router. Mail and messaging routes
// are only mounted when their collaborators are set. An empty metrics route
// disables the prometheus endpoint.
func RegisterRoutes(router fiber.Router, c *Controller) {
	router.Get(c.Routes.Me, c.Me)
	router.Post(c.Routes.Login, c.Login)

	roles := router.Group(c.Routes.Roles)
	roles.Get("/", c.ListRoles)
	roles.Get("/name/:name", c.GetRoleByName)
	roles.Get("/:id", c.GetRole)
	roles.Post("/", c.CreateRole)
	roles.Post("/batch", c.CreateRoles)
	roles.Delete("/:id", c.DeleteRole)
	roles.Delete("/", c.DeleteRoles)

	users := router.Group(c.Routes.Users)
	users.Get("/", c.ListUsers)
	users.Get("/username/:username", c.GetUserDetails)
	users.Get("/active/:username", c.GetActiveUser)
	users.Get("/count/:username", c.CountUsers)
	users.Get("/:id", c.GetUser)
	users.Get("/:id/avatar", c.GetAvatar)
	users.Post("/", c.CreateUser)
	users.Post("/:username/lock", c.LockUser)
	users.Post("/:username/unlock", c.UnlockUser)
	users.Post("/:username/password", c.SetPassword)
	users.Post("/:id/avatar", c.UploadAvatar)
	users.Delete("/:id", c.DeleteUser)

	if c.Mailboxes != nil {
		router.Get(c.Routes.Mail+"/:account", c.UnreadMail)
	}

	if c.Messages != nil {
		router.Post(c.Routes.Messages, c.SendMessage)
		router.Post(c.Routes.Messages+"/:destination", c.SendMessage)
	}

	if c.Routes.Metrics != "" {
		RegisterMetricsRoute(router, c.Routes.Metrics)
	}
}

// Me reports the auditor resolved for the request
func (a *Controller) Me(c *fiber.Ctx) error {
	auditor, ok := CurrentAuditor(c.UserContext())
	return c.JSON(fiber.Map{
		"auditor":       auditor,
		"authenticated": ok,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password" mask:"filled4"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login verifies a username and password pair
func (a *Controller) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := a.bind(c, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return invalidRecord(err, "invalid login request")
	}

	user, err := a.Users.VerifyCredentials(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return err
	}

	return c.JSON(NewUserLoginInfo(user))
}

// LoginRoleRequest payload. An empty description is stored as null.
type LoginRoleRequest struct {
	ID          string                 `form:"id" json:"id"`
	Name        string                 `form:"name" json:"name"`
	Description binding.OptionalString `form:"description" json:"description"`
}

func (r LoginRoleRequest) record() (*LoginRole, error) {
	role := &LoginRole{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description.Ptr(),
	}

	if r.ID != "" {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, invalidIdentifier(r.ID, err)
		}
		role.ID = id
	}

	return role, nil
}

// IDsRequest payload for batch deletes
type IDsRequest struct {
	IDs []string `json:"ids"`
}

func (r IDsRequest) parse() ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.IDs))
	for _, raw := range r.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, invalidIdentifier(raw, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (a *Controller) ListRoles(c *fiber.Ctx) error {
	roles, err := a.Roles.FindAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(roles)
}

func (a *Controller) GetRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	role, found, err := a.Roles.FindOne(c.UserContext(), id)
	if err != nil {
		return err
	}

	if !found {
		return NewNotFound("login role not found").
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return c.JSON(role)
}

func (a *Controller) GetRoleByName(c *fiber.Ctx) error {
	name := c.Params("name")

	role, found, err := a.Roles.FindByName(c.UserContext(), name)
	if err != nil {
		return err
	}

	if !found {
		return NewNotFound("login role not found").
			WithMetadata(map[string]any{
				"name": name,
			})
	}

	return c.JSON(role)
}

func (a *Controller) CreateRole(c *fiber.Ctx) error {
	payload := new(LoginRoleRequest)
	if err := a.bind(c, payload); err != nil {
		return err
	}

	record, err := payload.record()
	if err != nil {
		return err
	}

	role, err := a.Roles.Save(c.UserContext(), record)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(role)
}

func (a *Controller) CreateRoles(c *fiber.Ctx) error {
	payload := []LoginRoleRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return badPayload(err)
	}

	records := make([]*LoginRole, 0, len(payload))
	for _, item := range payload {
		record, err := item.record()
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	roles, err := a.Roles.SaveAll(c.UserContext(), records)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(roles)
}

func (a *Controller) DeleteRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := a.Roles.Delete(c.UserContext(), id); err != nil {
		return err
	}

	return c.SendStatus(http.StatusNoContent)
}

func (a *Controller) DeleteRoles(c *fiber.Ctx) error {
	payload := new(IDsRequest)
	if err := c.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	ids, err := payload.parse()
	if err != nil {
		return err
	}

	if err := a.Roles.DeleteAll(c.UserContext(), ids); err != nil {
		return err
	}

	return c.SendStatus(http.StatusNoContent)
}

// UserLoginRequest payload. The optional avatar is read from a multipart
// "avatar" file and dropped when it is not a readable image.
type UserLoginRequest struct {
	Username string                 `form:"username" json:"username"`
	Password string                 `form:"password" json:"password" mask:"filled4"`
	Active   bool                   `form:"active" json:"active"`
	RoleID   binding.OptionalString `form:"role_id" json:"role_id"`
}

func (r UserLoginRequest) record() (*UserLogin, error) {
	user := &UserLogin{
		Username: strings.TrimSpace(r.Username),
		Active:   r.Active,
	}

	if r.RoleID.Valid() {
		id, err := uuid.Parse(r.RoleID.String())
		if err != nil {
			return nil, invalidIdentifier(r.RoleID.String(), err)
		}
		user.RoleID = &id
	}

	if r.Password != "" {
		hash, err := HashPassword(r.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	return user, nil
}

func (a *Controller) ListUsers(c *fiber.Ctx) error {
	users, err := a.Users.FindAll(c.UserContext())
	if err != nil {
		return err
	}

	out := make([]*UserLoginInfo, 0, len(users))
	for _, user := range users {
		out = append(out, NewUserLoginInfo(user))
	}

	return c.JSON(out)
}

func (a *Controller) GetUser(c *fiber.Ctx) error {
	user, err := a.findUser(c)
	if err != nil {
		return err
	}
	return c.JSON(NewUserLoginInfo(user))
}

func (a *Controller) GetAvatar(c *fiber.Ctx) error {
	user, err := a.findUser(c)
	if err != nil {
		return err
	}

	if len(user.Avatar) == 0 {
		return NewNotFound("avatar not found").
			WithMetadata(map[string]any{
				"id": user.ID.String(),
			})
	}

	contentType := user.AvatarType
	if !binding.IsImageContentType(contentType) {
		contentType = fiber.MIMEOctetStream
	}

	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(user.Avatar)
}

func (a *Controller) GetUserDetails(c *fiber.Ctx) error {
	username := c.Params("username")

	info, found, err := a.Users.FindDetailsByUsername(c.UserContext(), username)
	if err != nil {
		return err
	}

	if !found {
		return userNotFound(username)
	}

	return c.JSON(info)
}

func (a *Controller) GetActiveUser(c *fiber.Ctx) error {
	username := c.Params("username")

	user, found, err := a.Users.FindByActiveUsername(c.UserContext(), username)
	if err != nil {
		return err
	}

	if !found {
		return userNotFound(username)
	}

	return c.JSON(NewUserLoginInfo(user))
}

func (a *Controller) CountUsers(c *fiber.Ctx) error {
	username := c.Params("username")

	count, err := a.Users.CountByName(c.UserContext(), username)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"username": username,
		"count":    count,
	})
}

func (a *Controller) CreateUser(c *fiber.Ctx) error {
	payload := new(UserLoginRequest)
	if err := a.bind(c, payload); err != nil {
		return err
	}

	record, err := payload.record()
	if err != nil {
		return err
	}

	if fh, err := c.FormFile("avatar"); err == nil {
		if img := a.Images.Convert(binding.NewFileHeaderUpload(fh)); img != nil {
			record.Avatar = img.Data
			record.AvatarType = img.DetectedType
		}
	}

	user, err := a.Users.Save(c.UserContext(), record)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(NewUserLoginInfo(user))
}

func (a *Controller) LockUser(c *fiber.Ctx) error {
	user, err := a.Users.Lock(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return c.JSON(NewUserLoginInfo(user))
}

func (a *Controller) UnlockUser(c *fiber.Ctx) error {
	user, err := a.Users.Unlock(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return c.JSON(NewUserLoginInfo(user))
}

// PasswordRequest payload
type PasswordRequest struct {
	Password string `form:"password" json:"password" mask:"filled4"`
}

// Validate will run validation rules
func (r PasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
	)
}

func (a *Controller) SetPassword(c *fiber.Ctx) error {
	payload := new(PasswordRequest)
	if err := a.bind(c, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return invalidRecord(err, "invalid password")
	}

	user, err := a.Users.SetPassword(c.UserContext(), c.Params("username"), payload.Password)
	if err != nil {
		return err
	}

	return c.JSON(NewUserLoginInfo(user))
}

// UploadAvatar stores the multipart "avatar" file. Unlike CreateUser the
// upload must be a readable image.
func (a *Controller) UploadAvatar(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	fh, err := c.FormFile("avatar")
	if err != nil {
		return badPayload(err)
	}

	img, err := binding.DecodeImage(binding.NewFileHeaderUpload(fh))
	if err != nil {
		return err
	}

	user, err := a.Users.SetAvatar(c.UserContext(), id, img)
	if err != nil {
		return err
	}

	return c.JSON(NewUserLoginInfo(user))
}

func (a *Controller) DeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := a.Users.Delete(c.UserContext(), id); err != nil {
		return err
	}

	return c.SendStatus(http.StatusNoContent)
}

// UnreadMail returns the unread messages of the named account
func (a *Controller) UnreadMail(c *fiber.Ctx) error {
	account := c.Params("account")

	receiver, err := a.Mailboxes.Receiver(account)
	if err != nil {
		return err
	}

	messages, err := receiver.Emails(c.UserContext())
	if err != nil {
		return err
	}

	if messages == nil {
		messages = []mail.Message{}
	}

	return c.JSON(fiber.Map{
		"account":  account,
		"messages": messages,
	})
}

// SendMessage publishes the request body. JSON bodies are sent as a map,
// anything else as text.
func (a *Controller) SendMessage(c *fiber.Ctx) error {
	var payload any = string(c.Body())

	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEApplicationJSON) {
		body := map[string]any{}
		if err := c.BodyParser(&body); err != nil {
			return badPayload(err)
		}
		payload = body
	}

	destination := c.Params("destination")

	var err error
	if destination == "" {
		err = a.Messages.Send(c.UserContext(), payload)
	} else {
		err = a.Messages.SendTo(c.UserContext(), destination, payload)
	}
	if err != nil {
		return err
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"destination": destination,
		"queued":      true,
	})
}

func (a *Controller) findUser(c *fiber.Ctx) (*UserLogin, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}

	user, found, err := a.Users.FindOne(c.UserContext(), id)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, NewNotFound("user login not found").
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return user, nil
}

func (a *Controller) bind(c *fiber.Ctx, payload any) error {
	if err := c.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if a.Debug {
		a.Logger.Debug("request payload", "path", c.Path(), "payload", print.MaybeSecureJSON(payload))
	}

	return nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := c.Params(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalidIdentifier(raw, err)
	}
	return id, nil
}

func userNotFound(username string) error {
	return NewNotFound("user login not found").
		WithMetadata(map[string]any{
			"username": username,
		})
}

func badPayload(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request payload").
		WithCode(goerrors.CodeBadRequest)
}
