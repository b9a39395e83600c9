package mysql

// ids are BINARY(16); every read converts them back to text.
const reviewColumns = `BIN_TO_UUID(id) AS id, tenant_id, app_id, user_id, score, comment,
  created_at, is_moderated, moderation_status, moderator_id, moderation_note`

// MySQL has no RETURNING: the id is drawn from UUID() first and the row is read back
// inside the same transaction.
const newIDSQL = `SELECT UUID()`

const insertReviewSQL = `
INSERT INTO reviews
  (id, tenant_id, app_id, user_id, score, comment)
VALUES
  (UUID_TO_BIN(?), ?, ?, ?, ?, ?)
`

const getReviewSQL = `
SELECT ` + reviewColumns + `
FROM reviews
WHERE id = UUID_TO_BIN(?) AND tenant_id = ?
`

// scopeWhere is shared by the page and the aggregate so both describe the same set.
// Params: tenant_id, app_id, moderated-only flag.
const scopeWhere = `
WHERE tenant_id = ?
  AND app_id = ?
  AND (? = FALSE OR is_moderated = TRUE)`

const listReviewsSQL = `
SELECT ` + reviewColumns + `
FROM reviews` + scopeWhere + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

const reviewStatsSQL = `
SELECT COUNT(*), COALESCE(AVG(score), 0)
FROM reviews` + scopeWhere

// Last writer wins: there is no version column to compare against.
const moderateReviewSQL = `
UPDATE reviews
SET is_moderated      = TRUE,
    moderation_status = ?,
    moderator_id      = ?,
    moderation_note   = ?
WHERE id = UUID_TO_BIN(?) AND tenant_id = ?
`
