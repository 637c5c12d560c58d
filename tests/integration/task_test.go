//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense_tracker/internal/handler"
	"expense_tracker/internal/ocr"
)

// Helper to create user and get token
func createUserAndLogin(t *testing.T, router http.Handler) (string, int) {
	t.Helper()

	username := fmt.Sprintf("user_%d", time.Now().UnixNano())
	password := "TestPass123!"

	payload := map[string]string{"username": username, "password": password}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var regResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &regResp)
	userID := int(regResp["user_id"].(float64))

	req = httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var loginResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &loginResp)
	token := loginResp["access_token"].(string)

	return token, userID
}

func authedJSONRequest(t *testing.T, router http.Handler, method, url, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createExpense(t *testing.T, router http.Handler, token string, payload map[string]interface{}) int {
	t.Helper()

	w := authedJSONRequest(t, router, "POST", "/api/v1/expenses", token, payload)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return int(resp["expense_id"].(float64))
}

// TestTask_ReceiptOCRLifecycle drives a receipt OCR task from creation
// through synchronous processing and verifies the expense reconciliation.
func TestTask_ReceiptOCRLifecycle(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	router := handler.SetupHandler(env.DB, env.RabbitConn, env.RedisClient, env.FileStore, env.Recognizer, env.Config)
	token, _ := createUserAndLogin(t, router)

	expenseID := createExpense(t, router, token, map[string]interface{}{})

	receiptPath := "receipts/integration/r1.jpg"
	require.NoError(t, env.FileStore.Upload(context.Background(), receiptPath, []byte("jpeg-bytes"), "image/jpeg"))

	var taskID int

	t.Run("CreateTask_Success", func(t *testing.T) {
		w := authedJSONRequest(t, router, "POST", "/api/v1/tasks", token, map[string]interface{}{
			"task_type": "receipt_ocr",
			"params": map[string]interface{}{
				"expenseId":   expenseID,
				"receiptPath": receiptPath,
			},
		})

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp, "task_id")
		assert.Equal(t, "Task created successfully", resp["message"])

		taskID = int(resp["task_id"].(float64))
	})

	t.Run("GetTask_Pending", func(t *testing.T) {
		w := authedJSONRequest(t, router, "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), token, nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "receipt_ocr", resp["task_type"])
		assert.Equal(t, "pending", resp["status"])
	})

	t.Run("ProcessNext_CompletesTask", func(t *testing.T) {
		w := authedJSONRequest(t, router, "POST", "/api/v1/tasks/process", token, nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, float64(taskID), resp["taskId"])
		assert.Equal(t, float64(expenseID), resp["expenseId"])

		extracted, ok := resp["extractedData"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Walmart", extracted["vendor"])
		assert.Equal(t, "45.67", extracted["total"])
		assert.Equal(t, "2024-01-15", extracted["date"])
	})

	t.Run("Expense_Reconciled", func(t *testing.T) {
		w := authedJSONRequest(t, router, "GET", fmt.Sprintf("/api/v1/expenses/%d", expenseID), token, nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Walmart", resp["vendor"])
		assert.Equal(t, "45.67", resp["cost"])
		assert.Equal(t, "complete", resp["status"])
	})

	t.Run("Task_Completed", func(t *testing.T) {
		w := authedJSONRequest(t, router, "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), token, nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "completed", resp["status"])
		assert.NotNil(t, resp["result"])
		assert.Nil(t, resp["error_message"])
	})

	t.Run("ProcessNext_NoPendingTasks", func(t *testing.T) {
		w := authedJSONRequest(t, router, "POST", "/api/v1/tasks/process", token, nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "No pending tasks found", resp["message"])
	})
}

func TestTask_CreateRejectsUnknownType(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	router := handler.SetupHandler(env.DB, env.RabbitConn, env.RedisClient, env.FileStore, env.Recognizer, env.Config)
	token, _ := createUserAndLogin(t, router)

	w := authedJSONRequest(t, router, "POST", "/api/v1/tasks", token, map[string]interface{}{
		"task_type": "send_email",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "invalid task type")
}

func TestTask_OCRFailureFlagsExpense(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	router := handler.SetupHandler(env.DB, env.RabbitConn, env.RedisClient, env.FileStore, env.Recognizer, env.Config)
	token, _ := createUserAndLogin(t, router)

	expenseID := createExpense(t, router, token, map[string]interface{}{})

	receiptPath := "receipts/integration/blank.jpg"
	require.NoError(t, env.FileStore.Upload(context.Background(), receiptPath, []byte("jpeg-bytes"), "image/jpeg"))

	env.Recognizer.setResult(ocr.RecognizeResult{Success: false, Error: "No text detected in the image"})

	w := authedJSONRequest(t, router, "POST", "/api/v1/tasks", token, map[string]interface{}{
		"task_type": "receipt_ocr",
		"params": map[string]interface{}{
			"expenseId":   expenseID,
			"receiptPath": receiptPath,
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = authedJSONRequest(t, router, "POST", "/api/v1/tasks/process", token, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "No text detected in the image", resp["error"])

	w = authedJSONRequest(t, router, "GET", fmt.Sprintf("/api/v1/expenses/%d", expenseID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var expenseResp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &expenseResp))
	assert.Equal(t, "ocr_failed", expenseResp["status"])
}

func TestTask_ExpenseExport(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	router := handler.SetupHandler(env.DB, env.RabbitConn, env.RedisClient, env.FileStore, env.Recognizer, env.Config)
	token, _ := createUserAndLogin(t, router)

	createExpense(t, router, token, map[string]interface{}{
		"vendor": "Corner Cafe",
		"cost":   "12.50",
	})

	w := authedJSONRequest(t, router, "POST", "/api/v1/tasks", token, map[string]interface{}{
		"task_type": "expense_export",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = authedJSONRequest(t, router, "POST", "/api/v1/tasks/process", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	filePath, ok := resp["filePath"].(string)
	require.True(t, ok)
	assert.Contains(t, filePath, "exports/")

	// The workbook must actually be in the store.
	data, _, err := env.FileStore.Download(context.Background(), filePath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestTask_OwnershipEnforced(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	router := handler.SetupHandler(env.DB, env.RabbitConn, env.RedisClient, env.FileStore, env.Recognizer, env.Config)
	tokenA, _ := createUserAndLogin(t, router)
	tokenB, _ := createUserAndLogin(t, router)

	w := authedJSONRequest(t, router, "POST", "/api/v1/tasks", tokenA, map[string]interface{}{
		"task_type": "expense_export",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	taskID := int(resp["task_id"].(float64))

	w = authedJSONRequest(t, router, "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), tokenB, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
