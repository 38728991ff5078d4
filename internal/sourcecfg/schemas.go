package sourcecfg

// Document shape checks, one per scraper type. Value ranges and defaults are
// handled on the decoded structs.

const greenhouseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["company_token"],
  "properties": {
    "company_token": {"type": "string", "pattern": "^[A-Za-z0-9._-]+$"}
  }
}`

const leverSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["company_handle"],
  "properties": {
    "company_handle": {"type": "string", "pattern": "^[A-Za-z0-9._-]+$"},
    "page_size": {"type": "integer"},
    "max_postings": {"type": "integer"}
  }
}`

const workdaySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["careers_url"],
  "properties": {
    "careers_url": {"type": "string", "minLength": 1},
    "wait_timeout": {"type": "integer"},
    "max_pages": {"type": "integer"},
    "selectors": {
      "type": "object",
      "required": ["job_item", "job_title"],
      "properties": {
        "job_item": {"type": "string", "minLength": 1},
        "job_title": {"type": "string", "minLength": 1},
        "job_location": {"type": "string"},
        "job_description": {"type": "string"},
        "job_link": {"type": "string"},
        "next_page": {"type": "string"},
        "load_more": {"type": "string"},
        "search_results": {"type": "string"}
      },
      "additionalProperties": {"type": "string"}
    }
  }
}`
