package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/kendall-kelly/home-services-api/models"
	"github.com/kendall-kelly/home-services-api/tests/testutil"
	"github.com/kendall-kelly/home-services-api/utils"
)

// DocumentUploadIntegrationTestSuite covers provider verification uploads
// through authentication, multipart parsing and object storage.
type DocumentUploadIntegrationTestSuite struct {
	suite.Suite
	stack *stack
	token string
}

const providerSubject = "auth0|provider-docs"

// SetupTest runs before each test
func (suite *DocumentUploadIntegrationTestSuite) SetupTest() {
	suite.stack = newStack(suite.T())
	suite.token = testutil.SignToken(suite.T(), testutil.TestJWTSecret, testutil.TestUser{Subject: providerSubject, Name: "Docs Provider"})

	ctx := context.Background()
	suite.Require().NoError(suite.stack.store.Users.Create(ctx, &models.User{ID: providerSubject, Name: "Docs Provider", Role: models.RoleProvider}))
	suite.Require().NoError(suite.stack.store.Providers.Create(ctx, &models.Provider{ID: providerSubject, Name: "Docs Provider", ApprovalStatus: models.ApprovalPending}))
}

// createMultipartRequest creates a multipart form request with file upload
func (suite *DocumentUploadIntegrationTestSuite) createMultipartRequest(kind, filename string, fileContent []byte) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if filename != "" && fileContent != nil {
		part, err := writer.CreateFormFile("file", filename)
		suite.Require().NoError(err)
		_, err = part.Write(fileContent)
		suite.Require().NoError(err)
	}
	suite.Require().NoError(writer.WriteField("note", "verification"))
	suite.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/providers/me/documents/"+kind, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	testutil.Authorize(req, suite.token)
	return req
}

func (suite *DocumentUploadIntegrationTestSuite) serve(req *http.Request) (int, map[string]interface{}) {
	w := httptest.NewRecorder()
	suite.stack.router.ServeHTTP(w, req)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return w.Code, response
}

func (suite *DocumentUploadIntegrationTestSuite) storedDocuments() models.ProviderDocuments {
	p, _, err := suite.stack.store.Providers.FindByID(context.Background(), providerSubject)
	suite.Require().NoError(err)
	return p.Documents
}

// TestUploadDocument_ValidPDF tests storing an ID proof
func (suite *DocumentUploadIntegrationTestSuite) TestUploadDocument_ValidPDF() {
	status, response := suite.serve(suite.createMultipartRequest(models.DocumentIDProof, "aadhaar.pdf", []byte("%PDF-1.7 test")))

	suite.Require().Equal(http.StatusOK, status, response)
	assert.True(suite.T(), response["success"].(bool))
	data := response["data"].(map[string]interface{})
	key := data["key"].(string)
	assert.Contains(suite.T(), key, providerSubject)
	assert.Contains(suite.T(), data["url"], "mock=true")
	assert.True(suite.T(), suite.stack.storage.Exists(key))

	assert.Equal(suite.T(), key, suite.storedDocuments().Key(models.DocumentIDProof))
}

// TestUploadDocument_EachKindIsIndependent tests that kinds do not overwrite each other
func (suite *DocumentUploadIntegrationTestSuite) TestUploadDocument_EachKindIsIndependent() {
	for _, kind := range []string{models.DocumentIDProof, models.DocumentAddressProof, models.DocumentCertificate} {
		status, _ := suite.serve(suite.createMultipartRequest(kind, kind+".jpg", []byte("jpeg bytes")))
		suite.Require().Equal(http.StatusOK, status, kind)
	}

	docs := suite.storedDocuments()
	assert.NotEmpty(suite.T(), docs.Key(models.DocumentIDProof))
	assert.NotEmpty(suite.T(), docs.Key(models.DocumentAddressProof))
	assert.NotEmpty(suite.T(), docs.Key(models.DocumentCertificate))
	assert.Len(suite.T(), suite.stack.storage.Keys(), 3)
}

// TestUploadDocument_WithoutFile tests the missing file error
func (suite *DocumentUploadIntegrationTestSuite) TestUploadDocument_WithoutFile() {
	status, response := suite.serve(suite.createMultipartRequest(models.DocumentIDProof, "", nil))

	assert.Equal(suite.T(), http.StatusBadRequest, status)
	assert.Equal(suite.T(), "FILE_REQUIRED", response["error"].(map[string]interface{})["code"])
	assert.Empty(suite.T(), suite.stack.storage.Keys())
}

// TestUploadDocument_InvalidFileFormat tests rejection of unsupported extensions
func (suite *DocumentUploadIntegrationTestSuite) TestUploadDocument_InvalidFileFormat() {
	for _, name := range []string{"script.exe", "notes.txt", "archive.zip"} {
		status, response := suite.serve(suite.createMultipartRequest(models.DocumentIDProof, name, []byte("data")))

		assert.Equal(suite.T(), http.StatusBadRequest, status, name)
		errorData := response["error"].(map[string]interface{})
		assert.Equal(suite.T(), "INVALID_FILE_FORMAT", errorData["code"])
	}
	assert.Empty(suite.T(), suite.stack.storage.Keys())
}

// TestUploadDocument_FileTooLarge tests rejection of files exceeding size limit
func (suite *DocumentUploadIntegrationTestSuite) TestUploadDocument_FileTooLarge() {
	fileContent := make([]byte, utils.MaxFileSize+1)
	status, response := suite.serve(suite.createMultipartRequest(models.DocumentCertificate, "large.png", fileContent))

	assert.Equal(suite.T(), http.StatusBadRequest, status)
	errorData := response["error"].(map[string]interface{})
	assert.Equal(suite.T(), "FILE_TOO_LARGE", errorData["code"])
	assert.Contains(suite.T(), errorData["message"], "File size exceeds")
	assert.Empty(suite.T(), suite.storedDocuments().Key(models.DocumentCertificate))
}

// TestUploadDocument_CustomerForbidden tests that only providers can upload
func (suite *DocumentUploadIntegrationTestSuite) TestUploadDocument_CustomerForbidden() {
	req := suite.createMultipartRequest(models.DocumentIDProof, "id.pdf", []byte("%PDF"))
	testutil.Authorize(req, testutil.SignToken(suite.T(), testutil.TestJWTSecret, testutil.TestUser{Subject: "auth0|someone-else"}))

	status, _ := suite.serve(req)
	assert.Equal(suite.T(), http.StatusForbidden, status)
}

func TestDocumentUploadIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(DocumentUploadIntegrationTestSuite))
}
