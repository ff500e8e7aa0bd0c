package http

// Register godoc
// @Summary Register a new user
// @Description Create a USER account and return a signed token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string} true "User registration data"
// @Success 201 {object} object{token=string,username=string,email=string,role=string}
// @Failure 400 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Failure 429 {object} object{error=string}
// @Router /auth/register [post]
func (h *UserHandler) RegisterDoc() {}

// Login godoc
// @Summary User login
// @Description Authenticate user and get JWT token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,username=string,email=string,role=string}
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Failure 429 {object} object{error=string}
// @Router /auth/login [post]
func (h *UserHandler) LoginDoc() {}
