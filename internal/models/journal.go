package models

// Идентификаторы сообщений журнала, по которым фильтруются события моста.
const (
	JournalGetCredentials              = "DATABRIDGE_GET_CREDENTIALS"
	JournalGotCredentials              = "DATABRIDGE_GOT_CREDENTIALS"
	JournalException                   = "DATABRIDGE_EXCEPTION"
	JournalTenderStage2NotExist        = "DATABRIDGE_TENDER_STAGE2_NOT_EXIST"
	JournalOnlyPatch                   = "DATABRIDGE_ONLY_PATCH"
	JournalCreateNewStage2             = "DATABRIDGE_CREATE_NEW_STAGE2"
	JournalCreateNewTender             = "DATABRIDGE_CREATE_NEW_TENDER"
	JournalUnsuccessfulCreate          = "DATABRIDGE_UNSUCCESSFUL_CREATE"
	JournalTenderCreated               = "DATABRIDGE_TENDER_CREATED"
	JournalPatchStage2ID               = "DATABRIDGE_CD_PATCH_STAGE2_ID"
	JournalUnsuccessfulPatchStage2ID   = "DATABRIDGE_CD_UNSUCCESSFUL_PATCH_STAGE2_ID"
	JournalPatchedStage2ID             = "DATABRIDGE_CD_PATCHED_STAGE2_ID"
	JournalPatchNewTenderStatus        = "DATABRIDGE_PATCH_NEW_TENDER_STATUS"
	JournalPatchDialogStatus           = "DATABRIDGE_PATCH_DIALOG_STATUS"
	JournalSuccessfulPatchDialogStatus = "DATABRIDGE_SUCCESSFUL_PATCH_DIALOG_STATUS"
	JournalFoundNoLot                  = "DATABRIDGE_FOUND_NOLOT"
	JournalCopyTenderItems             = "DATABRIDGE_COPY_TENDER_ITEMS"
	JournalDataIntegrity               = "DATABRIDGE_DATA_INTEGRITY"
	JournalFeedPage                    = "DATABRIDGE_FEED_PAGE"
)
